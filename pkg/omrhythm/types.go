package omrhythm

// ListOptions filters and pages analysis listings. A zero Limit means all.
type ListOptions struct {
	Limit        int
	Offset       int
	AbnormalOnly bool
	Name         string
}

// Stats counts stored analyses.
type Stats struct {
	Analyses int64 `json:"analyses"`
	Abnormal int64 `json:"abnormal"`
}

// ExportKind selects a file produced by ExportFiles.
type ExportKind string

const (
	ExportMIDI        ExportKind = "midi"
	ExportWAV         ExportKind = "wav"
	ExportSpectrogram ExportKind = "spectrogram"
)

func (k ExportKind) Ext() string {
	switch k {
	case ExportMIDI:
		return ".mid"
	case ExportWAV:
		return ".wav"
	case ExportSpectrogram:
		return ".png"
	default:
		return ""
	}
}

// ParseExportKind accepts the kind names plus "mid" and "png".
func ParseExportKind(s string) (ExportKind, bool) {
	switch s {
	case "midi", "mid":
		return ExportMIDI, true
	case "wav":
		return ExportWAV, true
	case "spectrogram", "png":
		return ExportSpectrogram, true
	default:
		return "", false
	}
}
