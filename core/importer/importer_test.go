package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"musicbox/logger"
	"musicbox/model"

	"github.com/bogem/id3v2/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCreator struct {
	mu    sync.Mutex
	songs map[string]*model.CreateSongForm
}

func newFakeCreator() *fakeCreator {
	return &fakeCreator{songs: make(map[string]*model.CreateSongForm)}
}

func (c *fakeCreator) CreateSong(_ context.Context, form *model.CreateSongForm) (*model.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.songs[form.Name]; ok {
		return nil, fmt.Errorf("song %q: %w", form.Name, model.ErrConflict)
	}
	c.songs[form.Name] = form
	return &model.Song{ID: form.Name, Name: form.Name, Category: model.CategoryGlobal}, nil
}

func (c *fakeCreator) get(name string) (*model.CreateSongForm, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.songs[name]
	return f, ok
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		path, name, artist string
	}{
		{"/music/Coldplay - Yellow.mp3", "Yellow", "Coldplay"},
		{"Arijit Singh - Tum Hi Ho.flac", "Tum Hi Ho", "Arijit Singh"},
		{"Clocks.m4a", "Clocks", ""},
		{"A - B - C.mp3", "B - C", "A"},
		{"Artist - .mp3", "Artist -", ""},
	}
	for _, tt := range tests {
		name, artist := ParseFilename(tt.path)
		if name != tt.name || artist != tt.artist {
			t.Errorf("ParseFilename(%q) = (%q, %q), want (%q, %q)", tt.path, name, artist, tt.name, tt.artist)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.mp3": true, "b.MP3": true, "c.ogg": true, "d.txt": false, "cover.jpg": false, "noext": false,
	} {
		if got := IsAudioFile(path); got != want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Coldplay - Yellow.mp3", []byte("yellow"))
	writeFile(t, dir, "Coldplay - Yellow.jpg", []byte("cover"))
	writeFile(t, dir, "Clocks.wav", []byte("clocks"))
	writeFile(t, dir, "notes.txt", []byte("ignored"))
	writeFile(t, dir, "Huge.mp3", make([]byte, 64))
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}

	creator := newFakeCreator()
	creator.songs["Clocks"] = &model.CreateSongForm{Name: "Clocks"}
	im := New(creator, 32)

	res, err := im.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	form, ok := creator.get("Yellow")
	if !ok {
		t.Fatal("Yellow was not imported")
	}
	if form.Artist != "Coldplay" || string(form.Audio) != "yellow" || string(form.Image) != "cover" {
		t.Errorf("unexpected form %+v", form)
	}
}

func TestImportDirMissing(t *testing.T) {
	im := New(newFakeCreator(), 0)
	if _, err := im.ImportDir(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestWatchImportsNewFiles(t *testing.T) {
	dir := t.TempDir()
	creator := newFakeCreator()
	im := New(creator, 0)
	im.settle = 50 * time.Millisecond
	im.tick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- im.Watch(ctx, dir) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "Coldplay - Fix You.mp3", []byte("fix you"))

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := creator.get("Fix You"); ok {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("watched file was not imported")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchLogsFileThatVanishesBeforeImport(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	dir := t.TempDir()
	im := New(newFakeCreator(), 0)
	im.settle = 50 * time.Millisecond
	im.tick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- im.Watch(ctx, dir) }()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "Coldplay - Ghost.mp3", []byte("gone"))
	if err := os.Remove(filepath.Join(dir, "Coldplay - Ghost.mp3")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for logs.FilterMessage("Watched file not imported").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("failed import of a vanished file was not logged")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestImportFilePrefersID3Tags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track01.mp3")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	tag := id3v2.NewEmptyTag()
	tag.SetTitle("Tum Hi Ho")
	tag.SetArtist("Arijit Singh")
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingISO,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Picture:     []byte("jpeg-bytes"),
	})
	if _, err := tag.WriteTo(f); err != nil {
		t.Fatalf("write tag: %v", err)
	}
	f.Write([]byte("frames"))
	f.Close()

	creator := newFakeCreator()
	if err := New(creator, 0).ImportFile(context.Background(), path); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	form, ok := creator.get("Tum Hi Ho")
	if !ok {
		t.Fatalf("tag title not used, got %v", creator.songs)
	}
	if form.Artist != "Arijit Singh" || string(form.Image) != "jpeg-bytes" {
		t.Errorf("unexpected form %+v", form)
	}
}
