package pipeline

import (
	"fmt"
	"time"

	"github.com/couchcryptid/city-stats-service/internal/domain"
)

// Job names accepted by cmd/refresh.
const (
	JobPopulation  = "population"
	JobTemperature = "temperature"
)

// JobDefaults are the per-job settings used when configuration leaves them empty.
type JobDefaults struct {
	BackupDir    string
	BackupPrefix string
	LogDir       string
	Policy       domain.Policy
}

// Defaults maps job names to their default settings.
var Defaults = map[string]JobDefaults{
	JobPopulation: {
		BackupDir:    "data/backups",
		BackupPrefix: "cities_backup_",
		LogDir:       "logs",
		Policy:       domain.PolicyFillMissing,
	},
	JobTemperature: {
		BackupDir:    "data/backups-temp",
		BackupPrefix: "backup_",
		LogDir:       "logs-temp",
		Policy:       domain.PolicyAlways,
	},
}

// PopulationCommitMessage is the commit message of a population refresh.
func PopulationCommitMessage(now time.Time) string {
	return "Monthly population update " + now.Format("20060102")
}

// TemperatureCommitMessage is the commit message of a temperature refresh
// averaging the given year.
func TemperatureCommitMessage(year int, now time.Time) string {
	return fmt.Sprintf("Yearly temp update for %d (%s)", year, now.Format(time.DateOnly))
}

// NewPopulationJob builds the population refresh job.
func NewPopulationJob(enricher Enricher, backups Rotator) Job {
	return Job{
		Name:          JobPopulation,
		Enricher:      enricher,
		Backups:       backups,
		CommitMessage: PopulationCommitMessage,
	}
}

// NewTemperatureJob builds the temperature refresh job.
func NewTemperatureJob(enricher *domain.TemperatureEnricher, backups Rotator) Job {
	return Job{
		Name:     JobTemperature,
		Enricher: enricher,
		Backups:  backups,
		CommitMessage: func(now time.Time) string {
			return TemperatureCommitMessage(enricher.Window().Year, now)
		},
	}
}
