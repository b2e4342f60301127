package storage

import "time"

// incidentModel is the persisted form of an incident record.
type incidentModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	Symbol     string `gorm:"size:32;index"`
	Action     string `gorm:"size:16"`
	Reasoning  string `gorm:"type:text"`
	Severity   string `gorm:"size:16"`
	Outcome    string `gorm:"type:text"`
	OccurredAt time.Time
	CreatedAt  time.Time
}

func (incidentModel) TableName() string { return "incidents" }

// accuracyModel is the persisted per-model/per-symbol calibration tally.
type accuracyModel struct {
	Model         string `gorm:"primaryKey;size:64"`
	Symbol        string `gorm:"primaryKey;size:32"`
	SampleCount   int
	Hits          int
	AvgConfidence float64
	UpdatedAt     time.Time
}

func (accuracyModel) TableName() string { return "model_accuracy" }

// breakerSnapshotModel stores the latest breaker snapshot as a JSON blob.
// A single row (id=1) is overwritten on every save.
type breakerSnapshotModel struct {
	ID        uint   `gorm:"primaryKey"`
	Payload   string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (breakerSnapshotModel) TableName() string { return "breaker_snapshots" }
