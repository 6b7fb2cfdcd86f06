package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parserSample = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('a', 'b'),'2;1');
FILE_NAME('part.stp','2024-05-01T10:00:00',('Ann'),('Acme'),'pre','CAD 1.0','');
FILE_SCHEMA(('CONFIG_CONTROL_DESIGN'));
ENDSEC;
ANCHOR;
ANCHOR_ITEM(#1);
ENDSEC;
DATA;
/* a comment; with a semicolon */
#1 = PRODUCT('p1', 'It''s a \X\E9l\X\E8ve', $, (#2));
#2=PRODUCT_CONTEXT('',*,'mechanical');
#3=(LENGTH_UNIT() NAMED_UNIT(*) SI_UNIT(.MILLI.,.METRE.));
#4=MEASURE_REPRESENTATION_ITEM('', LENGTH_MEASURE(1.5E-1), #3);
#5=B_SPLINE_CURVE_WITH_KNOTS('',1,(#6,#7),.UNSPECIFIED.,.F.,.U.,(2,2),(0.,1.),.UNSPECIFIED.);
#6=CARTESIAN_POINT('',(-1.E+1,2,3.));
#7=CARTESIAN_POINT('',(4.,5.,6.));
ENDSEC;
END-ISO-10303-21;
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(parserSample))
	require.NoError(t, err)

	t.Run("Header", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, f.Header.Description)
		assert.Equal(t, "part.stp", f.Header.Name)
		assert.Equal(t, []string{"Ann"}, f.Header.Author)
		assert.Equal(t, "CAD 1.0", f.Header.OriginatingSystem)
		assert.Equal(t, []string{"CONFIG_CONTROL_DESIGN"}, f.Header.Schemas)
	})

	t.Run("Skips Unknown Sections", func(t *testing.T) {
		assert.Equal(t, 7, f.Len())
	})

	t.Run("Strings And Unset", func(t *testing.T) {
		e, ok := f.Entity(1)
		require.True(t, ok)
		rec, ok := e.Record("PRODUCT")
		require.True(t, ok)
		assert.Equal(t, "p1", rec.Text(0))
		assert.Equal(t, "It's a élève", rec.Text(1))
		assert.True(t, rec.IsUnset(2))
		refs, err := rec.Refs(3)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, refs)
	})

	t.Run("Complex Instance", func(t *testing.T) {
		e, ok := f.Entity(3)
		require.True(t, ok)
		assert.True(t, e.Complex())
		assert.True(t, e.Is("SI_UNIT"))
		assert.Equal(t, "LENGTH_UNIT NAMED_UNIT SI_UNIT", e.Type())
		si, _ := e.Record("SI_UNIT")
		assert.Equal(t, "MILLI", si.Enum(0))
		assert.Equal(t, "METRE", si.Enum(1))
	})

	t.Run("Typed Values", func(t *testing.T) {
		e, _ := f.Entity(4)
		v, err := e.Records[0].Real(1)
		require.NoError(t, err)
		assert.InDelta(t, 0.15, v, 1e-12)
	})

	t.Run("Numbers", func(t *testing.T) {
		e, _ := f.Entity(6)
		c, err := e.Records[0].Reals(1)
		require.NoError(t, err)
		assert.Equal(t, []float64{-10, 2, 3}, c)

		spline, _ := f.Entity(5)
		mults, err := spline.Records[0].Ints(6)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, mults)
		closed, err := spline.Records[0].Bool(4)
		require.NoError(t, err)
		assert.False(t, closed)
	})

	t.Run("Each In Id Order", func(t *testing.T) {
		pts := f.Each("CARTESIAN_POINT")
		require.Len(t, pts, 2)
		assert.Equal(t, 6, pts[0].ID)
		assert.Equal(t, 7, pts[1].ID)
	})
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"Missing Magic":       "HEADER;\nENDSEC;\n",
		"Unterminated String": "ISO-10303-21;\nHEADER;\nFILE_NAME('oops);\n",
		"Missing End":         "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=POINT('');\nENDSEC;\n",
		"Bad Instance":        "ISO-10303-21;\nDATA;\n#1 POINT('');\nENDSEC;\nEND-ISO-10303-21;\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}
