package authz

import (
	"context"

	"github.com/casbin/casbin/v2"
	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

const pagesObject = "workflow.pages"

// CasbinOracle answers the publish/edit predicates from a casbin policy.
// Requests are scoped to the tenant domain so one policy file can serve
// multiple tenants.
type CasbinOracle struct {
	enforcer *casbin.Enforcer
}

func NewCasbinOracle(modelPath, policyPath string) (*CasbinOracle, error) {
	enforcer, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, gerrors.Wrap(err, "authz: load casbin policy")
	}
	return &CasbinOracle{enforcer: enforcer}, nil
}

var _ workflowrequest.PermissionOracle = (*CasbinOracle)(nil)

func (o *CasbinOracle) CanPublish(ctx context.Context, actor types.Actor, pageID uuid.UUID) (bool, error) {
	return o.enforce(ctx, actor, "publish")
}

func (o *CasbinOracle) CanEdit(ctx context.Context, actor types.Actor, pageID uuid.UUID) (bool, error) {
	return o.enforce(ctx, actor, "edit")
}

func (o *CasbinOracle) enforce(ctx context.Context, actor types.Actor, action string) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	ok, err := o.enforcer.Enforce(actor.ID.String(), "tenant:"+tenantID.String(), pagesObject, action)
	if err != nil {
		return false, gerrors.Wrap(err, "authz: enforce")
	}
	return ok, nil
}
