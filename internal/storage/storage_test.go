package storage

import (
	"context"
	"testing"

	"careerboost/internal/config"
	"careerboost/internal/errors"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"uploads/u1/a.pdf", "uploads/u1/a.pdf", false},
		{"/uploads/u1/a.pdf", "uploads/u1/a.pdf", false},
		{"uploads/../../etc/passwd", "", true},
		{"uploads//a.pdf", "", true},
		{`uploads\a.pdf`, "", true},
		{"  ", "", true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("cleanKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("cleanKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "https://files.example.com/", nil)
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	key := "uploads/u1/cv.txt"
	if err := s.Put(ctx, key, []byte("hello"), "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Get() = %q", data)
	}
	if got := s.URL(key); got != "https://files.example.com/uploads/u1/cv.txt" {
		t.Errorf("URL() = %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.HasCode(err, errors.ErrCodeFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	err = s.Put(context.Background(), "../outside.txt", []byte("x"), "")
	if !errors.IsType(err, errors.ErrorTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	local, err := New(ctx, &config.StorageConfig{Provider: "local", LocalDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New(local) error = %v", err)
	}
	if _, ok := local.(*LocalStore); !ok {
		t.Errorf("New(local) = %T", local)
	}

	remote, err := New(ctx, &config.StorageConfig{
		Provider:      "s3",
		Bucket:        "resumes",
		Endpoint:      "http://localhost:9000",
		AccessKey:     "key",
		SecretKey:     "secret",
		UsePathStyle:  true,
		PublicBaseURL: "https://cdn.example.com",
	}, nil)
	if err != nil {
		t.Fatalf("New(s3) error = %v", err)
	}
	if got := remote.URL("uploads/a.pdf"); got != "https://cdn.example.com/uploads/a.pdf" {
		t.Errorf("URL() = %q", got)
	}

	if _, err := New(ctx, &config.StorageConfig{Provider: "s3"}, nil); !errors.IsType(err, errors.ErrorTypeConfig) {
		t.Errorf("expected config error without bucket, got %v", err)
	}
	if _, err := New(ctx, &config.StorageConfig{Provider: "ftp"}, nil); !errors.IsType(err, errors.ErrorTypeConfig) {
		t.Errorf("expected config error for unknown provider, got %v", err)
	}
}
