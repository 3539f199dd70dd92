package accounts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Account
		wantErr error
	}{
		{
			name:    "two valid lines in order",
			content: "123|alice\n456|bob",
			want:    []Account{{"123", "alice"}, {"456", "bob"}},
		},
		{
			name:    "windows line endings",
			content: "123|alice\r\n456|bob\r\n",
			want:    []Account{{"123", "alice"}, {"456", "bob"}},
		},
		{
			name:    "blank lines skipped",
			content: "\n123|alice\n\n\n456|bob\n",
			want:    []Account{{"123", "alice"}, {"456", "bob"}},
		},
		{
			name:    "line without separator skipped",
			content: "123|alice\nnot-an-account\n456|bob",
			want:    []Account{{"123", "alice"}, {"456", "bob"}},
		},
		{
			name:    "empty id skipped",
			content: "|alice\n456|bob",
			want:    []Account{{"456", "bob"}},
		},
		{
			name:    "empty name skipped",
			content: "123|   \n456|bob",
			want:    []Account{{"456", "bob"}},
		},
		{
			name:    "fields trimmed",
			content: " 123 | alice \n456|bob",
			want:    []Account{{"123", "alice"}, {"456", "bob"}},
		},
		{
			name:    "only invalid lines",
			content: "garbage\n|\n   \n",
			wantErr: ErrEmptyData,
		},
		{
			name:    "empty file",
			content: "",
			wantErr: ErrEmptyData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.content)
			got, err := Load(path)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d accounts, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("account %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
