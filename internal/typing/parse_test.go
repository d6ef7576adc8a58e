package typing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rosettago/internal/typing"
)

func TestParseRoundTripsString(t *testing.T) {
	for _, src := range []string{
		"path[64]/euclidean",
		"path[t]/euclidean",
		"feature[16]/l2",
		"pointcloud[p,3]/euclidean",
		"spectrum[t]/l2{rotation,translation}",
		"barcode[]",
	} {
		ty, err := typing.Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, src, ty.String())
	}
}

func TestParseMixedShape(t *testing.T) {
	ty, err := typing.Parse("path[t, 3]/euclidean")
	require.NoError(t, err)
	assert.Equal(t, []typing.Dim{typing.Sym("t"), typing.Fixed(3)}, ty.Shape)
}

func TestParseNormalizesGroup(t *testing.T) {
	ty, err := typing.Parse("feature[16]/l2{translation,rotation,rotation}")
	require.NoError(t, err)
	assert.Equal(t, []string{"rotation", "translation"}, ty.Group)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, src := range []string{
		"",
		"path",
		"[64]",
		"path[64",
		"path[0]/euclidean",
		"path[64]euclidean",
		"path[64]/l2{rotation",
	} {
		_, err := typing.Parse(src)
		assert.Error(t, err, src)
	}
}
