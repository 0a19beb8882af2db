// Package caption extracts the name, distance and date printed in a
// dash-camera subtitle overlay.
package caption

import (
	"regexp"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Unicode word and whitespace classes. RE2's \w, \s and \b only know ASCII.
const (
	wordClass  = `\p{L}\p{N}_`
	spaceClass = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`
)

// captionPattern matches captions such as "Great Eastern Hwy 12.4km (03/11/2017)".
// The name group is lazy, so it keeps any whitespace that separates it from
// the distance token. The distance must start on a word boundary: either the
// name ends in whitespace and the distance in a word character, or the name
// ends in a word character and the distance in a dot. The boundary pair is
// captured separately and joined back in Parse.
var captionPattern = regexp.MustCompile(
	`^.*?(?P<name>[` + wordClass + spaceClass + `]*?)` +
		`(?:(?P<nameSpace>[` + spaceClass + `])(?P<distWord>[0-9a-z])|(?P<nameWord>[` + wordClass + `])(?P<distDot>\.))` +
		`(?P<dist>[0-9.a-z]*)[` + spaceClass + `]\((?P<date>[\p{Nd}/]+)\)`,
)

var (
	nameGroup      = captionPattern.SubexpIndex("name")
	nameSpaceGroup = captionPattern.SubexpIndex("nameSpace")
	nameWordGroup  = captionPattern.SubexpIndex("nameWord")
	distWordGroup  = captionPattern.SubexpIndex("distWord")
	distDotGroup   = captionPattern.SubexpIndex("distDot")
	distGroup      = captionPattern.SubexpIndex("dist")
	dateGroup      = captionPattern.SubexpIndex("date")
)

// Parse splits a caption into its fields. Captions that do not follow the
// expected layout yield empty fields rather than an error.
func Parse(caption string) models.CaptionFields {
	m := captionPattern.FindStringSubmatch(caption)
	if m == nil {
		return models.CaptionFields{}
	}

	// Exactly one side of the boundary alternation matched; the other is empty.
	return models.CaptionFields{
		Name: m[nameGroup] + m[nameSpaceGroup] + m[nameWordGroup],
		Dist: m[distWordGroup] + m[distDotGroup] + m[distGroup],
		Date: m[dateGroup],
	}
}
