package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateSongFormValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    CreateSongForm
		wantErr bool
	}{
		{"ok", CreateSongForm{Name: "Tum Hi Ho", Audio: []byte{1}}, false},
		{"ok with category", CreateSongForm{Name: "x", Audio: []byte{1}, Category: " Global "}, false},
		{"missing name", CreateSongForm{Name: "   ", Audio: []byte{1}}, true},
		{"missing audio", CreateSongForm{Name: "x"}, true},
		{"bad category", CreateSongForm{Name: "x", Audio: []byte{1}, Category: "regional"}, true},
		{"long name", CreateSongForm{Name: strings.Repeat("a", 256), Audio: []byte{1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.form
			f.Normalize()
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error %v should wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestCreatePlaylistFormValidate(t *testing.T) {
	empty := []string{}

	f := CreatePlaylistForm{Name: "Road trip", SongIDs: &empty}
	if err := f.Validate(); err != nil {
		t.Errorf("empty songIds should be accepted, got %v", err)
	}

	f = CreatePlaylistForm{Name: "Road trip"}
	if err := f.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing songIds: got %v, want ErrInvalidInput", err)
	}

	f = CreatePlaylistForm{Name: " ", SongIDs: &empty}
	if err := f.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: got %v, want ErrInvalidInput", err)
	}
}

func TestUpdatePlaylistFormValidate(t *testing.T) {
	if err := (&UpdatePlaylistForm{}).Validate(); err != nil {
		t.Errorf("empty update should be valid, got %v", err)
	}

	blank := "  "
	if err := (&UpdatePlaylistForm{Name: &blank}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: got %v, want ErrInvalidInput", err)
	}

	name := " Chill "
	f := &UpdatePlaylistForm{Name: &name}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if *f.Name != "Chill" {
		t.Errorf("name not trimmed: %q", *f.Name)
	}
}

func TestAddFavouriteFormValidate(t *testing.T) {
	if err := (&AddFavouriteForm{}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing songId: got %v, want ErrInvalidInput", err)
	}
	if err := (&AddFavouriteForm{SongID: "abc"}).Validate(); err != nil {
		t.Errorf("songId only should be valid, got %v", err)
	}
}

func TestSongSummaryJSON(t *testing.T) {
	s := &Song{
		ID:        "id-1",
		Name:      "Shape of You",
		Image:     []byte("png"),
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := json.Marshal(s.Summary(CategoryGlobal))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["_id"] != "id-1" {
		t.Errorf("_id = %v", got["_id"])
	}
	if got["artist"] != nil || got["category"] != nil {
		t.Errorf("empty artist/category should be null, got %v / %v", got["artist"], got["category"])
	}
	if got["image"] != "cG5n" {
		t.Errorf("image = %v, want base64 of png", got["image"])
	}
	if got["effectiveCategory"] != "global" {
		t.Errorf("effectiveCategory = %v", got["effectiveCategory"])
	}
	if _, ok := got["audio"]; ok {
		t.Error("summary must not carry audio")
	}
}
