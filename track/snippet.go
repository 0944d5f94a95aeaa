package track

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RenderSnippet serializes queued events into inline script
// statements against the well-known analytics global, in enqueue
// order. The global is loaded by an external bootstrap snippet; the
// whole block is guarded on its existence.
func RenderSnippet(events []*Event) string {
	if len(events) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<script type="text/javascript">`)
	b.WriteString(`if (typeof analytics !== "undefined") {`)
	for _, event := range events {
		statement, err := RenderStatement(event)
		if err != nil {
			log.WithError(err).WithField("event_kind", event.Kind).Error(
				"Failed to serialize event for client emission. Skipped.")
			continue
		}
		b.WriteString(statement)
	}
	b.WriteString(`}</script>`)

	return b.String()
}

// RenderStatement renders one analytics call with JSON encoded
// arguments.
func RenderStatement(event *Event) (string, error) {
	properties, err := json.Marshal(event.Properties)
	if err != nil {
		return "", err
	}

	switch event.Kind {
	case EventKindPage:
		return "analytics.page(" + string(properties) + ");", nil
	case EventKindIdentify:
		userID, err := json.Marshal(event.UserID)
		if err != nil {
			return "", err
		}
		return "analytics.identify(" + string(userID) + "," + string(properties) + ");", nil
	case EventKindTrack:
		name, err := json.Marshal(event.Name)
		if err != nil {
			return "", err
		}
		return "analytics.track(" + string(name) + "," + string(properties) + ");", nil
	}

	return "", errors.Errorf("unknown event kind: %s", event.Kind)
}
