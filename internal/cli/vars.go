package cli

import (
	"github.com/forgelabs/forgemon/internal/config"
	"github.com/forgelabs/forgemon/internal/monitor"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Cfg      *config.Config
	Monitor  monitor.System
)
