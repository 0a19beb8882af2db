package caption

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    models.CaptionFields
	}{
		{
			name:    "name distance and date",
			caption: "John Doe 5.2m (01/02/2020)",
			want:    models.CaptionFields{Name: "John Doe ", Dist: "5.2m", Date: "01/02/2020"},
		},
		{
			name:    "leading noise is skipped",
			caption: "## Great Eastern Hwy 12.4km (03/11/2017)",
			want:    models.CaptionFields{Name: " Great Eastern Hwy ", Dist: "12.4km", Date: "03/11/2017"},
		},
		{
			name:    "trailing text is ignored",
			caption: "Roe St 100m (1/1/2018) extra",
			want:    models.CaptionFields{Name: "Roe St ", Dist: "100m", Date: "1/1/2018"},
		},
		{
			name:    "empty caption",
			caption: "",
			want:    models.CaptionFields{},
		},
		{
			name:    "punctuation only",
			caption: "!!!---???",
			want:    models.CaptionFields{},
		},
		{
			name:    "missing date",
			caption: "John Doe 5.2m",
			want:    models.CaptionFields{},
		},
		{
			name:    "missing parentheses",
			caption: "John Doe 5.2m 01/02/2020",
			want:    models.CaptionFields{},
		},
		{
			name:    "accented letter in name",
			caption: "Café Rd 5km (01/02/2020)",
			want:    models.CaptionFields{Name: "Café Rd ", Dist: "5km", Date: "01/02/2020"},
		},
		{
			name:    "diaeresis in name",
			caption: "Zoë St 1.2km (03/04/2019)",
			want:    models.CaptionFields{Name: "Zoë St ", Dist: "1.2km", Date: "03/04/2019"},
		},
		{
			name:    "non-breaking space before distance",
			caption: "Roe St\u00a07km (1/1/2018)",
			want:    models.CaptionFields{Name: "Roe St\u00a0", Dist: "7km", Date: "1/1/2018"},
		},
		{
			name:    "distance starting with a dot follows a word",
			caption: "Rd.5km (1/1/2020)",
			want:    models.CaptionFields{Name: "Rd", Dist: ".5km", Date: "1/1/2020"},
		},
		{
			name:    "distance glued to a name has no boundary",
			caption: "Rd5km (1/1/2020)",
			want:    models.CaptionFields{},
		},
		{
			name:    "distance glued to a non-ASCII letter has no boundary",
			caption: "Café5km (1/1/2020)",
			want:    models.CaptionFields{},
		},
		{
			name:    "uppercase distance unit does not match",
			caption: "John Doe 5.2M (01/02/2020)",
			want:    models.CaptionFields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.caption))
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	captions := []string{
		"John Doe 5.2m (01/02/2020)",
		"Albany Hwy 3km (12/12/2019)",
		"not a caption",
	}

	for _, c := range captions {
		first := Parse(c)
		second := Parse(c)
		assert.Equal(t, first, second, "re-parsing %q changed the result", c)
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{"(", ")", "()", " (1/1)", "\x00\xff", "a b c d (///)"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) })
	}
}
