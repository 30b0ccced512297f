package importer

import (
	"path/filepath"
	"strings"

	"musicbox/logger"

	"github.com/bogem/id3v2/v2"
)

// fileTags holds what the embedded ID3 tag says about an mp3.
type fileTags struct {
	Title  string
	Artist string
	Cover  []byte
}

// readTags reads the ID3v2 tag of an mp3. Other formats and untagged files
// yield an empty result.
func readTags(path string) fileTags {
	var t fileTags
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return t
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		logger.Debug("No readable ID3 tag", logger.String("file", path), logger.ErrorField(err))
		return t
	}
	defer tag.Close()

	t.Title = strings.TrimSpace(tag.Title())
	t.Artist = strings.TrimSpace(tag.Artist())
	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		if pic, ok := f.(id3v2.PictureFrame); ok && len(pic.Picture) > 0 {
			t.Cover = pic.Picture
			break
		}
	}
	return t
}
