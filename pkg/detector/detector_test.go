package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/ccollicutt/convlog/pkg/parser"
)

const sampleLog = `2024-01-15 10:00:00 INFO: Starting conversion
[STEP:DataValidation] WARNING: Field 'phone' has unusual format
[STEP:DataValidation] ERROR: Required field 'email' is missing
[STEP:DataTransform] ERROR: Unable to parse date
[STEP:DataLoad] CRITICAL: Database connection timeout
2024-01-15 10:05:00 INFO: Conversion finished
`

func TestDetector_DetectFromBytes_UTF8(t *testing.T) {
	d := New()
	result, err := d.DetectFromBytes(context.Background(), []byte(sampleLog))
	if err != nil {
		t.Fatalf("DetectFromBytes() error = %v", err)
	}

	if result.Encoding != EncodingUTF8 {
		t.Errorf("Encoding = %q, want utf-8", result.Encoding)
	}
	if result.BOM {
		t.Error("BOM = true, want false")
	}
	if result.SampledLines != 6 {
		t.Errorf("SampledLines = %d, want 6", result.SampledLines)
	}
	if result.InvalidLines != 0 {
		t.Errorf("InvalidLines = %d, want 0", result.InvalidLines)
	}
	if result.LevelHits.Get(parser.LevelCritical) != 1 ||
		result.LevelHits.Get(parser.LevelError) != 2 ||
		result.LevelHits.Get(parser.LevelWarning) != 1 {
		t.Errorf("LevelHits = %v, want [1 2 1]", result.LevelHits)
	}
	if result.Classified() != 4 || !result.HasEntries() {
		t.Errorf("Classified() = %d, want 4", result.Classified())
	}
	if result.TaggedLines != 4 {
		t.Errorf("TaggedLines = %d, want 4", result.TaggedLines)
	}

	wantSteps := []string{"DataValidation", "DataTransform", "DataLoad"}
	if strings.Join(result.Steps, ",") != strings.Join(wantSteps, ",") {
		t.Errorf("Steps = %v, want %v", result.Steps, wantSteps)
	}

	if len(result.Samples) != 3 {
		t.Fatalf("Samples = %d, want one per level", len(result.Samples))
	}
	if result.Samples[0].Level != parser.LevelWarning || result.Samples[0].LineNum != 2 {
		t.Errorf("first sample = %+v, want WARNING on line 2", result.Samples[0])
	}
	if result.SuggestWordMatch() {
		t.Error("SuggestWordMatch() = true, want false for whole-word keywords")
	}
}

func TestDetector_SuggestWordMatch(t *testing.T) {
	lines := "INFO errorCount=0\nINFO no WARNINGS\nERROR real failure\n"

	result, err := New().DetectFromBytes(context.Background(), []byte(lines))
	if err != nil {
		t.Fatalf("DetectFromBytes() error = %v", err)
	}

	if result.Classified() != 3 {
		t.Errorf("Classified() = %d, want 3", result.Classified())
	}
	if result.WordHits != 1 {
		t.Errorf("WordHits = %d, want 1", result.WordHits)
	}
	if !result.SuggestWordMatch() {
		t.Error("SuggestWordMatch() = false, want true")
	}
}

func TestDetector_DetectFromBytes_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("ERROR first line\n")...)

	result, err := New().DetectFromBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DetectFromBytes() error = %v", err)
	}

	if result.Encoding != EncodingUTF8 || !result.BOM {
		t.Errorf("Encoding = %q BOM = %v, want utf-8 with BOM", result.Encoding, result.BOM)
	}
	if result.Samples[0].Message != "ERROR first line" {
		t.Errorf("Message = %q, BOM should be stripped", result.Samples[0].Message)
	}
}

func TestDetector_DetectFromBytes_UTF16(t *testing.T) {
	tests := []struct {
		name    string
		enc     unicode.Endianness
		bom     unicode.BOMPolicy
		want    string
		wantBOM bool
	}{
		{"little endian with BOM", unicode.LittleEndian, unicode.UseBOM, EncodingUTF16LE, true},
		{"little endian without BOM", unicode.LittleEndian, unicode.IgnoreBOM, EncodingUTF16LE, false},
		{"big endian with BOM", unicode.BigEndian, unicode.UseBOM, EncodingUTF16BE, true},
		{"big endian without BOM", unicode.BigEndian, unicode.IgnoreBOM, EncodingUTF16BE, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := unicode.UTF16(tt.enc, tt.bom).NewEncoder().Bytes([]byte(sampleLog))
			if err != nil {
				t.Fatalf("encoding sample: %v", err)
			}

			result, err := New().DetectFromBytes(context.Background(), data)
			if err != nil {
				t.Fatalf("DetectFromBytes() error = %v", err)
			}

			if result.Encoding != tt.want {
				t.Errorf("Encoding = %q, want %q", result.Encoding, tt.want)
			}
			if result.BOM != tt.wantBOM {
				t.Errorf("BOM = %v, want %v", result.BOM, tt.wantBOM)
			}
			if result.Classified() != 4 {
				t.Errorf("Classified() = %d, want 4", result.Classified())
			}
		})
	}
}

func TestDetector_DetectFromBytes_Latin1(t *testing.T) {
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte("ERROR: Échec de la conversion\nWARNING: données incomplètes\n"))
	if err != nil {
		t.Fatalf("encoding sample: %v", err)
	}

	result, err := New().DetectFromBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DetectFromBytes() error = %v", err)
	}

	if result.Encoding != EncodingWindows1252 {
		t.Errorf("Encoding = %q, want windows-1252", result.Encoding)
	}
	if result.InvalidLines != 0 {
		t.Errorf("InvalidLines = %d, want 0", result.InvalidLines)
	}
	if result.Samples[0].Message != "ERROR: Échec de la conversion" {
		t.Errorf("Message = %q, want decoded text", result.Samples[0].Message)
	}
}

func TestDetector_SampleSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("ERROR line\n")
	}

	result, err := New(WithSampleSize(10)).DetectFromBytes(context.Background(), []byte(b.String()))
	if err != nil {
		t.Fatalf("DetectFromBytes() error = %v", err)
	}
	if result.SampledLines != 10 {
		t.Errorf("SampledLines = %d, want 10", result.SampledLines)
	}
}

func TestDetector_Empty(t *testing.T) {
	result, err := New().DetectFromBytes(context.Background(), nil)
	if err != nil {
		t.Fatalf("DetectFromBytes() error = %v", err)
	}
	if result.SampledLines != 0 || result.HasEntries() {
		t.Errorf("empty input produced %+v", result)
	}
	if result.Encoding != EncodingUTF8 {
		t.Errorf("Encoding = %q, want utf-8 for empty input", result.Encoding)
	}
}

func TestDetector_DetectFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := New().DetectFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectFromFile() error = %v", err)
	}
	if result.Classified() != 4 {
		t.Errorf("Classified() = %d, want 4", result.Classified())
	}
}

func TestDetector_DetectFromFile_NotFound(t *testing.T) {
	_, err := New().DetectFromFile(context.Background(), "/nonexistent/file.log")
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestTrimPartialRune(t *testing.T) {
	full := []byte("caf\xc3\xa9")
	if got := trimPartialRune(full); string(got) != string(full) {
		t.Errorf("trimPartialRune(complete) = %q", got)
	}

	cut := full[:len(full)-1]
	if got := trimPartialRune(cut); string(got) != "caf" {
		t.Errorf("trimPartialRune(cut) = %q, want caf", got)
	}
}
