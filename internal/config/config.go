package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	TaxonID          string `mapstructure:"taxon_id"`
	PageSize         int    `mapstructure:"page_size"`
	APIBaseURL       string `mapstructure:"api_base_url"`
	NcbiApiKey       string `mapstructure:"ncbi_api_key"`
	CachePath        string `mapstructure:"cache_path"`
	CacheTTLSecs     int64  `mapstructure:"cache_ttl_seconds"`
	QualityPolicy    string `mapstructure:"quality_policy"`
	JSONLPath        string `mapstructure:"jsonl_path"`
	GFFPath          string `mapstructure:"gff_path"`
	GenomeID         string `mapstructure:"genome_id"`
	OutCSV           string `mapstructure:"out_csv"`
	SQLitePath       string `mapstructure:"sqlite_path"`
	LogFile          string `mapstructure:"log_file"`
	LogLevel         string `mapstructure:"log_level"`
	JSONLPreviewRows int    `mapstructure:"jsonl_preview_rows"`
	GFFPreviewRows   int    `mapstructure:"gff_preview_rows"`
}

var defaults = map[string]any{
	"taxon_id":           "80866",
	"ncbi_api_key":       "",
	"cache_path":         "",
	"sqlite_path":        "",
	"log_file":           "",
	"page_size":          500,
	"api_base_url":       "https://api.ncbi.nlm.nih.gov/datasets/v2",
	"cache_ttl_seconds":  int64(7 * 24 * 3600),
	"quality_policy":     "pass",
	"jsonl_path":         "assembly_data_report.jsonl",
	"gff_path":           "genomic.gff",
	"genome_id":          "GCF_000018665.1",
	"out_csv":            "delftia_genomes_metadata_full.csv",
	"log_level":          "info",
	"jsonl_preview_rows": 5,
	"gff_preview_rows":   10,
}

// LoadConfig loads a JSON or YAML config from the given path. If path is
// empty, looks for ./config.json. A missing file is not an error: defaults
// apply. NCBI_API_KEY and DELFTIA_* environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix("delftia")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ncbi_api_key", "NCBI_API_KEY", "DELFTIA_NCBI_API_KEY")
	_ = v.BindEnv("cache_ttl_seconds", "NCBI_CACHE_TTL_SECONDS", "DELFTIA_CACHE_TTL_SECONDS")

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
