package newapi

import "encoding/json"

// User is a NewAPI user record. Only the fields the bot touches are typed;
// every other field the server sent is kept verbatim in extra, because
// UpdateUser is a full-record replace and an omitted field would be cleared
// server-side.
type User struct {
	ID       int64
	Username string
	Quota    int64
	Group    string

	extra map[string]json.RawMessage
}

func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var known struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Quota    int64  `json:"quota"`
		Group    string `json:"group"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	delete(fields, "id")
	delete(fields, "username")
	delete(fields, "quota")
	delete(fields, "group")

	u.ID = known.ID
	u.Username = known.Username
	u.Quota = known.Quota
	u.Group = known.Group
	u.extra = fields
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(u.extra)+4)
	for k, v := range u.extra {
		fields[k] = v
	}
	fields["id"], _ = json.Marshal(u.ID)
	fields["username"], _ = json.Marshal(u.Username)
	fields["quota"], _ = json.Marshal(u.Quota)
	fields["group"], _ = json.Marshal(u.Group)
	return json.Marshal(fields)
}
