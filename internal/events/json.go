package events

import "encoding/json"

// ToJSON marshals event and injects its Type() as the "type"
// discriminator field subscribers parse by. Every concrete event
// already embeds base's "timestamp" field via json tags; this adds
// the one field a plain struct marshal can't produce from a method.
func ToJSON(event DomainEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = event.Type()
	return json.Marshal(m)
}
