package modules

import (
	"github.com/iota-uz/cms-workflow/modules/workflow"
	"github.com/iota-uz/cms-workflow/pkg/application"
)

var BuiltInModules = []application.Module{
	workflow.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
