package domain

// MigrationState represents the progress of the legacy database migration
type MigrationState string

const (
	MigrationNotMigrated MigrationState = "NOT_MIGRATED"
	MigrationMigrating   MigrationState = "MIGRATING"
	MigrationComplete    MigrationState = "COMPLETE"
	MigrationDBNotFound  MigrationState = "DB_NOT_PRESENT"
	MigrationError       MigrationState = "ERROR"
)

// MigrationStatus is reported to migration observers
type MigrationStatus struct {
	Status             MigrationState `json:"status"`
	PercentageMigrated int            `json:"percentage_migrated"`
	ErrorKind          ErrorKind      `json:"error_kind,omitempty"`
}

// IsFinished reports whether a migration run has stopped
func (s MigrationStatus) IsFinished() bool {
	switch s.Status {
	case MigrationComplete, MigrationDBNotFound, MigrationError:
		return true
	default:
		return false
	}
}

// MigrationObserver receives every migration status change
type MigrationObserver func(status MigrationStatus)

// LegacyBatch is a batch as recorded by the legacy schema
type LegacyBatch struct {
	ID              string
	Title           string
	Status          string
	CreatedAtMillis int64
	Files           []LegacyFile
}

// LegacyFile is a file as recorded by the legacy schema
type LegacyFile struct {
	ID              string
	NetworkAddress  string
	FilePath        string
	TotalSize       int64
	BytesDownloaded int64
	Status          string
}

// LegacyStore reads the legacy database. It never writes to it.
type LegacyStore interface {
	ReadBatches() ([]LegacyBatch, error)
	Close() error
}

// LegacyStoreOpener opens the legacy database at path
type LegacyStoreOpener func(path string) (LegacyStore, error)
