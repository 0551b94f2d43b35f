package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/profile"
)

// Global flags
var (
	dbPath      string
	profilePath string
	exportDir   string
	sampleRate  int
	tempo       float64
	noImplicit  bool
)

var rootCmd = &cobra.Command{
	Use:   "omrhythm",
	Short: "Rhythm analysis for recognized music systems",
	Long: `omrhythm reads systems produced by an optical music recognizer,
assigns voices and time offsets to their chords, stores the results and
exports them as MIDI, WAV or spectrogram files.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.GetLogger().Debugf("Executing command: %s", cmd.CommandPath())
	},
}

func init() {
	// .env is optional
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", getEnvOrDefault("OMRHYTHM_DB_PATH", "omrhythm.sqlite3"), "Path to the SQLite database file")
	flags.StringVar(&profilePath, "profile", os.Getenv("OMRHYTHM_PROFILE"), "Recognition profile (YAML)")
	flags.StringVar(&exportDir, "export-dir", getEnvOrDefault("OMRHYTHM_EXPORT_DIR", "exports"), "Directory for exported files")
	flags.IntVar(&sampleRate, "rate", 22050, "Sample rate of WAV auditions")
	flags.Float64Var(&tempo, "tempo", 120, "Playback tempo in quarter notes per minute")
	flags.BoolVar(&noImplicit, "no-implicit-tuplets", false, "Disable implicit tuplet inference")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new service with configured options
func createService() (omrhythm.Service, error) {
	opts := []omrhythm.Option{
		omrhythm.WithDBPath(dbPath),
		omrhythm.WithExportDir(exportDir),
		omrhythm.WithSampleRate(sampleRate),
		omrhythm.WithTempo(tempo),
	}
	if profilePath != "" {
		p, err := profile.Load(profilePath)
		if err != nil {
			return nil, err
		}
		logger.GetLogger().Infof("Using profile %q from %s", p.Name, profilePath)
		opts = append(opts, omrhythm.WithProfile(p))
	}
	if noImplicit {
		opts = append(opts, omrhythm.WithImplicitTuplets(false))
	}
	return omrhythm.NewService(opts...)
}

func mustService() omrhythm.Service {
	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		logger.GetLogger().Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	return svc
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
