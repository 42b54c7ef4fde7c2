package timeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugifyCaseInsensitive(t *testing.T) {
	require.Equal(t, Slugify("Main Stage"), Slugify("main stage"))
	require.Equal(t, "main-stage", Slugify("Main Stage"))
}

func TestSlugifyDanishLetters(t *testing.T) {
	require.Equal(t, "bogescenen", Slugify("Bøgescenen"))
	require.Equal(t, "aben-scene", Slugify("Åben Scene"))
	require.Equal(t, "aero", Slugify("Ærø"))
}

func TestSlugifyCollapsesSeparators(t *testing.T) {
	require.Equal(t, "weird-name", Slugify("  --Weird__Name!! "))
	require.Equal(t, "scene-2", Slugify("Scene #2"))
}

func TestSlugifyEmpty(t *testing.T) {
	require.Equal(t, "", Slugify(""))
	require.Equal(t, "", Slugify("!!!"))
}
