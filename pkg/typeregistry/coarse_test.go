package typeregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

func TestCoarseFileType(t *testing.T) {
	cases := map[string]model.CoarseType{
		"text/html":            model.CoarseHTML,
		"application/zip":      model.CoarseArchive,
		"application/msword":   model.CoarseDoc,
		"application/vnd.ms-excel": model.CoarseXLS,
		"application/vnd.ms-powerpoint": model.CoarsePPT,
		"message/rfc822":       model.CoarseEmail,
		"image/jpeg":           model.CoarseImage,
		"video/mp4":            model.CoarseVideo,
		"audio/mpeg":           model.CoarseAudio,
		"application/pdf":      model.CoarsePDF,
		"text/plain":           model.CoarseText,
		"application/x-unknown-thing": model.CoarseOther,
	}
	for mt, want := range cases {
		assert.Equal(t, want, CoarseFileType(mt), "mime type %q", mt)
	}
}

func TestCoarseFileType_ZipPrefixVariants(t *testing.T) {
	assert.Equal(t, model.CoarseArchive, CoarseFileType("application/x-zip-compressed"))
}

func TestMagikaGroupToCoarse(t *testing.T) {
	c, ok := MagikaGroupToCoarse("document")
	assert.True(t, ok)
	assert.Equal(t, model.CoarseDoc, c)

	c, ok = MagikaGroupToCoarse("unknown")
	assert.True(t, ok)
	assert.Equal(t, model.CoarseOther, c)

	_, ok = MagikaGroupToCoarse("nonexistent-group")
	assert.False(t, ok)
}

func TestResultCoarse_DedupesAndUnions(t *testing.T) {
	r := Result{MimeTypes: []string{"image/jpeg", "image/png", "application/pdf"}}
	got := r.Coarse()
	assert.ElementsMatch(t, []model.CoarseType{model.CoarseImage, model.CoarsePDF}, got)
}
