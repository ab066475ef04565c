package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreMinio  = "minio"
)

// Platform kinds.
const (
	PlatformLocal    = "local"
	PlatformTemporal = "temporal"
)

// Naming policies for barcodes without a sample name.
const (
	UnmatchedError   = "error"
	UnmatchedUnnamed = "unnamed"
)

// Model is the complete pipeline configuration.
type Model struct {
	Run      Run
	Mapping  Mapping
	QC       QC
	Naming   Naming
	Store    Store
	Platform Platform
	// Notify is nil when no status endpoint is configured.
	Notify *Notify
	Tools  Tools
}

// Run describes the sequencing run and where results go.
type Run struct {
	RunFolder   string
	SampleSheet string
	OutputDir   string
	ScratchDir  string
	// Lanes restricts demultiplexing; empty means every lane of the sheet.
	Lanes      []int
	Mismatches int
}

// Mapping configures the map stage.
type Mapping struct {
	Reference      string
	Threads        int
	MarkDuplicates bool
}

// QC configures the qc stage. Reference enables alignment metrics.
type QC struct {
	Reference string
}

// Naming maps barcodes to sample names.
type Naming struct {
	Unmatched string
	Samples   map[string]string
}

// Store selects the file metadata store.
type Store struct {
	Kind      string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	RateLimit float64
	Burst     int
}

// Platform selects the job platform that executes stage graphs.
type Platform struct {
	Kind      string
	HostPort  string
	Namespace string
	TaskQueue string
	// EmbeddedWorker runs a Temporal worker inside the process.
	EmbeddedWorker  bool
	ActivityTimeout time.Duration
	MaxAttempts     int
}

// Notify configures unit status notifications over socket.io.
type Notify struct {
	URL       string
	Namespace string
	Event     string
}

// Tools names the external programs. Empty fields use the program name.
type Tools struct {
	Bcl2fastq string
	Bwa       string
	Samtools  string
	Java      string
	Picard    string
	Fastqc    string
}

// New returns a model holding only defaults.
func New() *Model {
	m := &Model{}
	m.ApplyDefaults()
	return m
}

// ApplyDefaults fills every unset field that has a default.
func (m *Model) ApplyDefaults() {
	if m.Run.ScratchDir == "" && m.Run.OutputDir != "" {
		m.Run.ScratchDir = filepath.Join(m.Run.OutputDir, "scratch")
	}
	if m.Mapping.Threads == 0 {
		m.Mapping.Threads = 1
	}
	if m.Naming.Unmatched == "" {
		m.Naming.Unmatched = UnmatchedError
	}
	if m.Store.Kind == "" {
		m.Store.Kind = StoreMemory
	}
	if m.Platform.Kind == "" {
		m.Platform.Kind = PlatformLocal
	}
	if m.Platform.Namespace == "" {
		m.Platform.Namespace = "default"
	}
	if m.Platform.TaskQueue == "" {
		m.Platform.TaskQueue = "lanepipe"
	}
	if m.Platform.ActivityTimeout == 0 {
		m.Platform.ActivityTimeout = time.Hour
	}
	if m.Platform.MaxAttempts == 0 {
		m.Platform.MaxAttempts = 1
	}
	if m.Notify != nil && m.Notify.Event == "" {
		m.Notify.Event = "unit_status"
	}
}

// Validate reports every invalid field at once.
func (m *Model) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if m.Run.OutputDir == "" {
		invalid("run.output_dir is required")
	}
	if m.Run.Mismatches < 0 || m.Run.Mismatches > 2 {
		invalid("run.mismatches must be between 0 and 2, got %d", m.Run.Mismatches)
	}
	for _, lane := range m.Run.Lanes {
		if lane < 1 {
			invalid("run.lanes contains invalid lane %d", lane)
		}
	}
	if m.Mapping.Threads < 1 {
		invalid("mapping.threads must be positive, got %d", m.Mapping.Threads)
	}
	switch m.Naming.Unmatched {
	case UnmatchedError, UnmatchedUnnamed:
	default:
		invalid("naming.unmatched must be '%s' or '%s', got '%s'", UnmatchedError, UnmatchedUnnamed, m.Naming.Unmatched)
	}

	switch m.Store.Kind {
	case StoreMemory:
	case StoreMinio:
		if m.Store.Endpoint == "" || m.Store.Bucket == "" {
			invalid("store \"minio\" requires endpoint and bucket")
		}
	default:
		invalid("unknown store kind '%s'", m.Store.Kind)
	}

	switch m.Platform.Kind {
	case PlatformLocal:
	case PlatformTemporal:
		if m.Platform.HostPort == "" {
			invalid("platform \"temporal\" requires host_port")
		}
	default:
		invalid("unknown platform kind '%s'", m.Platform.Kind)
	}
	if m.Platform.MaxAttempts < 1 {
		invalid("platform.max_attempts must be positive, got %d", m.Platform.MaxAttempts)
	}

	if m.Notify != nil && m.Notify.URL == "" {
		invalid("notify.url is required")
	}
	return errors.Join(errs...)
}
