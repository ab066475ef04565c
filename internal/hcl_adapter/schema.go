package hcl_adapter

// fileRoot decodes the top-level blocks of one file. Every block may appear
// in any file, but at most once across all files.
type fileRoot struct {
	Runs      []*runBlock      `hcl:"run,block"`
	Mappings  []*mappingBlock  `hcl:"mapping,block"`
	QCs       []*qcBlock       `hcl:"qc,block"`
	Namings   []*namingBlock   `hcl:"naming,block"`
	Stores    []*storeBlock    `hcl:"store,block"`
	Platforms []*platformBlock `hcl:"platform,block"`
	Notifies  []*notifyBlock   `hcl:"notify,block"`
	Tools     []*toolsBlock    `hcl:"tools,block"`
}

func (r *fileRoot) merge(other *fileRoot) {
	r.Runs = append(r.Runs, other.Runs...)
	r.Mappings = append(r.Mappings, other.Mappings...)
	r.QCs = append(r.QCs, other.QCs...)
	r.Namings = append(r.Namings, other.Namings...)
	r.Stores = append(r.Stores, other.Stores...)
	r.Platforms = append(r.Platforms, other.Platforms...)
	r.Notifies = append(r.Notifies, other.Notifies...)
	r.Tools = append(r.Tools, other.Tools...)
}

type runBlock struct {
	RunFolder   string `hcl:"run_folder,optional"`
	SampleSheet string `hcl:"sample_sheet,optional"`
	OutputDir   string `hcl:"output_dir"`
	ScratchDir  string `hcl:"scratch_dir,optional"`
	Lanes       []int  `hcl:"lanes,optional"`
	Mismatches  *int   `hcl:"mismatches,optional"`
}

type mappingBlock struct {
	Reference      string `hcl:"reference"`
	Threads        int    `hcl:"threads,optional"`
	MarkDuplicates bool   `hcl:"mark_duplicates,optional"`
}

type qcBlock struct {
	Reference string `hcl:"reference,optional"`
}

type namingBlock struct {
	Unmatched string            `hcl:"unmatched,optional"`
	Samples   map[string]string `hcl:"samples,optional"`
}

type storeBlock struct {
	Kind      string  `hcl:"kind,label"`
	Endpoint  string  `hcl:"endpoint,optional"`
	Bucket    string  `hcl:"bucket,optional"`
	AccessKey string  `hcl:"access_key,optional"`
	SecretKey string  `hcl:"secret_key,optional"`
	Region    string  `hcl:"region,optional"`
	UseSSL    bool    `hcl:"use_ssl,optional"`
	RateLimit float64 `hcl:"rate_limit,optional"`
	Burst     int     `hcl:"burst,optional"`
}

type platformBlock struct {
	Kind            string `hcl:"kind,label"`
	HostPort        string `hcl:"host_port,optional"`
	Namespace       string `hcl:"namespace,optional"`
	TaskQueue       string `hcl:"task_queue,optional"`
	EmbeddedWorker  *bool  `hcl:"embedded_worker,optional"`
	ActivityTimeout string `hcl:"activity_timeout,optional"`
	MaxAttempts     int    `hcl:"max_attempts,optional"`
}

type notifyBlock struct {
	URL       string `hcl:"url"`
	Namespace string `hcl:"namespace,optional"`
	Event     string `hcl:"event,optional"`
}

type toolsBlock struct {
	Bcl2fastq string `hcl:"bcl2fastq,optional"`
	Bwa       string `hcl:"bwa,optional"`
	Samtools  string `hcl:"samtools,optional"`
	Java      string `hcl:"java,optional"`
	Picard    string `hcl:"picard,optional"`
	Fastqc    string `hcl:"fastqc,optional"`
}
