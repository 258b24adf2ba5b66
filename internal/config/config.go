package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed academics.yaml
var academicsYAML []byte

type Config struct {
	DataDir     string
	Camera      CameraConfig
	Recognition RecognitionConfig
	Attendance  AttendanceConfig
	Backup      BackupConfig
	Academics   AcademicsConfig
	Postgres    PostgresConfig
	API         APIConfig
}

type CameraConfig struct {
	Index       int     // device selector, kept for device-backed frame sources
	FrameDir    string  // directory-backed frame source (default frame input)
	ReadTimeout int     // seconds to wait for a frame before giving up
	TargetFPS   float64 // effective recognition decisions per second
}

type RecognitionConfig struct {
	// ConfidenceThreshold is a cosine distance: LOWER means stricter matching.
	// A prediction is accepted when its distance is <= the threshold.
	ConfidenceThreshold float64
	RequiredSamples     int // recommended enrollment samples per student
	MinSamplesWarn      int // training warns below this count
}

type AttendanceConfig struct {
	CooldownSeconds    int // per-roll dedupe window within one session
	BatchWriteInterval int // accepted marks buffered before a ledger flush
}

type BackupConfig struct {
	RetentionCount int // snapshots kept per store, oldest pruned first
}

type AcademicsConfig struct {
	Branches []string `yaml:"branches"`
	Sections []string `yaml:"sections"`
}

type PostgresConfig struct {
	URL          string // optional; enables the pgvector sample store
	MaxOpenConns int
	MaxIdleConns int
}

type APIConfig struct {
	Host string
	Port int
}

// StudentDBPath returns the path of the roster record store.
func (c *Config) StudentDBPath() string {
	return filepath.Join(c.DataDir, "students.json")
}

// AttendanceCSVPath returns the path of the attendance ledger.
func (c *Config) AttendanceCSVPath() string {
	return filepath.Join(c.DataDir, "attendance.csv")
}

// DatasetPath returns the root directory for enrollment face samples.
func (c *Config) DatasetPath() string {
	return filepath.Join(c.DataDir, "dataset")
}

// ModelPath returns the path of the trained recognizer artifact.
func (c *Config) ModelPath() string {
	return filepath.Join(c.DataDir, "trainer", "model.gob")
}

// BackupPath returns the directory holding store snapshots.
func (c *Config) BackupPath() string {
	return filepath.Join(c.DataDir, "backups")
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envIndex is like envInt but accepts zero (camera device indexes start at 0).
func envIndex(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, trimming and
// uppercasing each entry.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var academics AcademicsConfig
	if err := yaml.Unmarshal(academicsYAML, &academics); err != nil {
		// Embedded file, cannot fail in practice.
		panic("failed to unmarshal embedded academics.yaml: " + err.Error())
	}

	return &Config{
		DataDir: envString("DATA_DIR", "data"),
		Camera: CameraConfig{
			Index:       envIndex("CAMERA_INDEX", 0),
			FrameDir:    os.Getenv("CAMERA_FRAME_DIR"),
			ReadTimeout: envInt("CAMERA_READ_TIMEOUT", 5),
			TargetFPS:   envFloat("TARGET_FRAME_RATE", 20),
		},
		Recognition: RecognitionConfig{
			ConfidenceThreshold: envFloat("RECOGNITION_CONFIDENCE_THRESHOLD", 0.45),
			RequiredSamples:     envInt("REQUIRED_SAMPLES_PER_STUDENT", 50),
			MinSamplesWarn:      envInt("MIN_SAMPLES_WARN", 30),
		},
		Attendance: AttendanceConfig{
			CooldownSeconds:    envInt("COOLDOWN_SECONDS", 5),
			BatchWriteInterval: envInt("BATCH_WRITE_INTERVAL", 10),
		},
		Backup: BackupConfig{
			RetentionCount: envInt("BACKUP_RETENTION_COUNT", 10),
		},
		Academics: AcademicsConfig{
			Branches: envList("ALLOWED_BRANCHES", academics.Branches),
			Sections: envList("ALLOWED_SECTIONS", academics.Sections),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("POSTGRES_URL"),
			MaxOpenConns: envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("POSTGRES_MAX_IDLE_CONNS", 5),
		},
		API: APIConfig{
			Host: envString("API_HOST", "0.0.0.0"),
			Port: envInt("API_PORT", 5000),
		},
	}
}
