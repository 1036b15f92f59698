package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

// LogGateway writes notifications to the application log instead of a real
// transport. Deployments plug in their own NotificationGateway; this one
// keeps development and tests observable.
type LogGateway struct {
	log *logrus.Logger
}

func NewLogGateway(log *logrus.Logger) *LogGateway {
	return &LogGateway{log: log}
}

var _ workflowrequest.NotificationGateway = (*LogGateway)(nil)

func (g *LogGateway) Send(ctx context.Context, sender types.Actor, recipientID uuid.UUID, subject, template string, data map[string]string) error {
	g.log.WithFields(logrus.Fields{
		"sender":    sender.ID,
		"recipient": recipientID,
		"template":  template,
		"data":      data,
	}).Infof("notification: %s", subject)
	return nil
}
