//go:build !js && !wasm

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/profile"
)

var (
	port           int
	dbPath         string
	tempDir        string
	profilePath    string
	sampleRate     int
	tempo          float64
	allowedOrigins string
	logRequests    bool
)

func init() {
	// .env is optional
	_ = godotenv.Load()

	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("OMRHYTHM_DB_PATH", "omrhythm.sqlite3"), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("OMRHYTHM_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.StringVar(&profilePath, "profile", os.Getenv("OMRHYTHM_PROFILE"), "Recognition profile (YAML)")
	flag.IntVar(&sampleRate, "rate", 22050, "Sample rate of WAV auditions")
	flag.Float64Var(&tempo, "tempo", 120, "Playback tempo in quarter notes per minute")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts := []omrhythm.Option{
		omrhythm.WithDBPath(dbPath),
		omrhythm.WithExportDir(tempDir),
		omrhythm.WithSampleRate(sampleRate),
		omrhythm.WithTempo(tempo),
	}
	if profilePath != "" {
		p, err := profile.Load(profilePath)
		if err != nil {
			log.Fatalf("Failed to load profile: %v", err)
		}
		opts = append(opts, omrhythm.WithProfile(p))
	}

	service, err := omrhythm.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: origins,
		LogRequests:    logRequests,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
