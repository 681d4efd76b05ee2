package app

import (
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/repos"
)

type Repos struct {
	User               repos.UserRepo
	PlatformConnection repos.PlatformConnectionRepo
	ExtractionJob      repos.ExtractionJobRepo
	TraitEstimate      repos.TraitEstimateRepo
	Evidence           repos.EvidenceRepo
	TriggerEvent       repos.TriggerEventRepo
	ActivityEvent      repos.ActivityEventRepo
	BehavioralPattern  repos.BehavioralPatternRepo
	PatternObservation repos.PatternObservationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:               repos.NewUserRepo(db, log),
		PlatformConnection: repos.NewPlatformConnectionRepo(db, log),
		ExtractionJob:      repos.NewExtractionJobRepo(db, log),
		TraitEstimate:      repos.NewTraitEstimateRepo(db, log),
		Evidence:           repos.NewEvidenceRepo(db, log),
		TriggerEvent:       repos.NewTriggerEventRepo(db, log),
		ActivityEvent:      repos.NewActivityEventRepo(db, log),
		BehavioralPattern:  repos.NewBehavioralPatternRepo(db, log),
		PatternObservation: repos.NewPatternObservationRepo(db, log),
	}
}
