package app

import (
	"github.com/mbolis/survey3/config"
	"github.com/mbolis/survey3/metrics"
	"github.com/mbolis/survey3/service"
)

type App struct {
	*service.Service
	config.Config
	Metrics *metrics.Metrics
}
