package types

import (
	"testing"
)

func TestArchiveFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       ArchiveFormat
		wantErr bool
	}{
		{"zip valid", ArchiveFormatZip, false},
		{"tar.gz valid", ArchiveFormatTarGz, false},
		{"empty invalid", "", true},
		{"invalid value", "rar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ArchiveFormat.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseArchiveFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ArchiveFormat
		wantErr bool
	}{
		{"zip lowercase", "zip", ArchiveFormatZip, false},
		{"zip uppercase", "ZIP", ArchiveFormatZip, false},
		{"tgz alias", "tgz", ArchiveFormatTarGz, false},
		{"tar.gz", " tar.gz ", ArchiveFormatTarGz, false},
		{"empty", "", "", true},
		{"unknown", "7z", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArchiveFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArchiveFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseArchiveFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectArchiveFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     ArchiveFormat
		wantErr  bool
	}{
		{"teddy-1.3.0.zip", ArchiveFormatZip, false},
		{"teddy-1.3.0.tar.gz", ArchiveFormatTarGz, false},
		{"teddy-1.3.0.TGZ", ArchiveFormatTarGz, false},
		{"teddy-1.3.0-checksums.txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := DetectArchiveFormat(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectArchiveFormat(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectArchiveFormat(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestResourceKindHelpers(t *testing.T) {
	if !ResourceKindDirectory.IsDirectory() {
		t.Error("directory.IsDirectory() should be true")
	}
	if ResourceKindDirectory.IsFile() {
		t.Error("directory.IsFile() should be false")
	}
	if !ResourceKindFile.IsFile() {
		t.Error("file.IsFile() should be true")
	}
	if err := ResourceKind("link").Validate(); err == nil {
		t.Error("ResourceKind(link).Validate() should fail")
	}
}
