package workflow

import (
	"embed"
	"io/fs"

	"github.com/iota-uz/cms-workflow/modules/workflow/infrastructure/authz"
	"github.com/iota-uz/cms-workflow/modules/workflow/infrastructure/notifications"
	"github.com/iota-uz/cms-workflow/modules/workflow/infrastructure/persistence"
	"github.com/iota-uz/cms-workflow/modules/workflow/presentation/controllers"
	"github.com/iota-uz/cms-workflow/modules/workflow/services"
	"github.com/iota-uz/cms-workflow/pkg/application"
	"github.com/iota-uz/cms-workflow/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	schemaFS, err := fs.Sub(migrationFiles, "infrastructure/persistence/schema")
	if err != nil {
		return err
	}
	app.Migrations().RegisterSchema(schemaFS)

	conf := configuration.Use()
	oracle, err := authz.NewCasbinOracle(conf.Authz.ModelPath, conf.Authz.PolicyPath)
	if err != nil {
		return err
	}

	pages := persistence.NewWorkflowPageRepository()
	app.RegisterServices(
		services.NewWorkflowRequestService(
			persistence.NewWorkflowRequestRepository(),
			oracle,
			pages,
			pages,
			notifications.NewLogGateway(app.Logger()),
			app.EventPublisher(),
		),
	)

	app.RegisterControllers(
		controllers.NewWorkflowAPIController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "workflow"
}
