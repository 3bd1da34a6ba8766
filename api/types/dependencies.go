package types

import (
	"github.com/killallgit/stream-recorder/internal/database"
	"github.com/killallgit/stream-recorder/internal/services/runs"
	"github.com/killallgit/stream-recorder/internal/storage"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB    *database.DB
	Runs  runs.Service
	Store storage.ObjectStore
	Build BuildInfo
}
