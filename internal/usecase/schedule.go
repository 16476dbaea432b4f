package usecase

import (
	"time"

	"github.com/semmidev/tenantvault/internal/domain"
)

func frequencyInterval(f domain.Frequency) time.Duration {
	switch f {
	case domain.FrequencyHourly:
		return time.Hour
	case domain.FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		// daily and anything unrecognised
		return 24 * time.Hour
	}
}

// IsDue reports whether a backup should run for s at now. An explicit
// NextRunAt wins over the LastRunAt + frequency rule.
func IsDue(s domain.BackupSettings, now time.Time) bool {
	if s.NextRunAt != nil {
		return !now.Before(*s.NextRunAt)
	}
	if s.LastRunAt == nil {
		return true
	}
	return now.Sub(*s.LastRunAt) >= frequencyInterval(s.Frequency)
}

func ComputeNextRun(f domain.Frequency, from time.Time) time.Time {
	return from.Add(frequencyInterval(f))
}
