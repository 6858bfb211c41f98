package peer

import (
	"encoding/json"
	"fmt"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// The wireXxx structs below are the JSON shape for each event.Details
// variant. They exist only so encoding/json has a concrete type to target;
// the exported event.Details types themselves are left untouched since
// adding json tags to them would leak a wire concern into the reducer
// package.

type wireNewUser struct {
	User wireUserID `json:"user"`
	Nickname string `json:"nickname"`
	Username string `json:"username"`
	Hostname string `json:"hostname"`
	Realname string `json:"realname"`
	Modes []string `json:"modes"`
}

type wireNickChange struct {
	User wireUserID `json:"user"`
	NewNickname string `json:"new_nickname"`
}

type wireUserQuit struct {
	User wireUserID `json:"user"`
	Reason string `json:"reason"`
}

type wireChannelJoin struct {
	Membership wireMembershipID `json:"membership"`
	User wireUserID `json:"user"`
	Channel wireChannelID `json:"channel"`
	ChannelName string `json:"channel_name"`
	Flags []string `json:"flags"`
}

type wireChannelPart struct {
	Membership wireMembershipID `json:"membership"`
	Reason string `json:"reason"`
}

type wireChannelModeChange struct {
	Channel wireChannelID `json:"channel"`
	Added map[string]string `json:"added"`
	Removed []string `json:"removed"`
}

type wireMembershipModeChange struct {
	Membership wireMembershipID `json:"membership"`
	Added []string `json:"added"`
	Removed []string `json:"removed"`
}

type wireTopicChange struct {
	Channel wireChannelID `json:"channel"`
	Topic string `json:"topic"`
	SetBy wireUserID `json:"set_by"`
}

type wireNewMessage struct {
	Message wireMessageID `json:"message"`
	From wireUserID `json:"from"`
	ToChannel *wireChannelID `json:"to_channel,omitempty"`
	ToUser *wireUserID `json:"to_user,omitempty"`
	Text string `json:"text"`
	IsNotice bool `json:"is_notice"`
	Tags map[string]string `json:"tags"`
}

type wireNewChannelRegistration struct {
	ChannelName string `json:"channel_name"`
	RegisteredBy wireUserID `json:"registered_by"`
}

type wireNewAccountRegistration struct {
	AccountName string `json:"account_name"`
	Owner wireUserID `json:"owner"`
}

type wireNewAuditLogEntry struct {
	Entry wireAuditLogEntryID `json:"entry"`
	Category string `json:"category"`
	Fields map[string]string `json:"fields"`
}

type wireAuditLogEntryID struct {
	Server uint32 `json:"server"`
	Seq uint64 `json:"seq"`
}

type wireServerPing struct {
	Server uint32 `json:"server"`
}

type wireServerQuit struct {
	Server uint32 `json:"server"`
	Epoch uint64 `json:"epoch"`
}

type wireUserID struct {
	Server uint32 `json:"server"`
	Seq uint64 `json:"seq"`
}

type wireChannelID struct {
	Server uint32 `json:"server"`
	Seq uint64 `json:"seq"`
}

type wireMembershipID struct {
	Server uint32 `json:"server"`
	Seq uint64 `json:"seq"`
}

type wireMessageID struct {
	Server uint32 `json:"server"`
	Seq uint64 `json:"seq"`
}

func encodeUserID(u ids.UserId) wireUserID { return wireUserID{Server: uint32(u.Server), Seq: uint64(u.Seq)} }
func decodeUserID(w wireUserID) ids.UserId { return ids.NewUserId(ids.ServerId(w.Server), w.Seq) }

func encodeChannelID(c ids.ChannelId) wireChannelID {
	return wireChannelID{Server: uint32(c.Server), Seq: uint64(c.Seq)}
}
func decodeChannelID(w wireChannelID) ids.ChannelId {
	return ids.NewChannelId(ids.ServerId(w.Server), w.Seq)
}

func encodeMembershipID(m ids.MembershipId) wireMembershipID {
	return wireMembershipID{Server: uint32(m.Server), Seq: uint64(m.Seq)}
}
func decodeMembershipID(w wireMembershipID) ids.MembershipId {
	return ids.NewMembershipId(ids.ServerId(w.Server), w.Seq)
}

func encodeMessageID(m ids.MessageId) wireMessageID {
	return wireMessageID{Server: uint32(m.Server), Seq: uint64(m.Seq)}
}
func decodeMessageID(w wireMessageID) ids.MessageId {
	return ids.NewMessageId(ids.ServerId(w.Server), w.Seq)
}

func encodeAuditLogEntryID(a ids.AuditLogEntryId) wireAuditLogEntryID {
	return wireAuditLogEntryID{Server: uint32(a.Server), Seq: uint64(a.Seq)}
}
func decodeAuditLogEntryID(w wireAuditLogEntryID) ids.AuditLogEntryId {
	return ids.NewAuditLogEntryId(ids.ServerId(w.Server), w.Seq)
}

func stringsOfModes[T ~string](flags []T) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

func encodeDetails(d event.Details) (string, json.RawMessage, error) {
	var (
		kind string
		v interface{}
	)
	switch d := d.(type) {
	case event.NewUser:
		kind, v = "NewUser", wireNewUser{
			User: encodeUserID(d.User), Nickname: d.Nickname, Username: d.Username,
			Hostname: d.Hostname, Realname: d.Realname, Modes: stringsOfModes(d.Modes),
		}
	case event.NickChange:
		kind, v = "NickChange", wireNickChange{User: encodeUserID(d.User), NewNickname: d.NewNickname}
	case event.UserQuit:
		kind, v = "UserQuit", wireUserQuit{User: encodeUserID(d.User), Reason: d.Reason}
	case event.ChannelJoin:
		kind, v = "ChannelJoin", wireChannelJoin{
			Membership: encodeMembershipID(d.Membership), User: encodeUserID(d.User),
			Channel: encodeChannelID(d.Channel), ChannelName: d.ChannelName, Flags: stringsOfModes(d.Flags),
		}
	case event.ChannelPart:
		kind, v = "ChannelPart", wireChannelPart{Membership: encodeMembershipID(d.Membership), Reason: d.Reason}
	case event.ChannelModeChange:
		added := make(map[string]string, len(d.Added))
		for f, val := range d.Added {
			added[string(f)] = val
		}
		removed := make([]string, 0, len(d.Removed))
		for f := range d.Removed {
			removed = append(removed, string(f))
		}
		kind, v = "ChannelModeChange", wireChannelModeChange{Channel: encodeChannelID(d.Channel), Added: added, Removed: removed}
	case event.MembershipModeChange:
		kind, v = "MembershipModeChange", wireMembershipModeChange{
			Membership: encodeMembershipID(d.Membership), Added: stringsOfModes(d.Added), Removed: stringsOfModes(d.Removed),
		}
	case event.TopicChange:
		kind, v = "TopicChange", wireTopicChange{Channel: encodeChannelID(d.Channel), Topic: d.Topic, SetBy: encodeUserID(d.SetBy)}
	case event.NewMessage:
		w := wireNewMessage{
			Message: encodeMessageID(d.Message), From: encodeUserID(d.From),
			Text: d.Text, IsNotice: d.IsNotice, Tags: d.Tags,
		}
		if d.ToChannel != nil {
			c := encodeChannelID(*d.ToChannel)
			w.ToChannel = &c
		}
		if d.ToUser != nil {
			u := encodeUserID(*d.ToUser)
			w.ToUser = &u
		}
		kind, v = "NewMessage", w
	case event.NewChannelRegistration:
		kind, v = "NewChannelRegistration", wireNewChannelRegistration{ChannelName: d.ChannelName, RegisteredBy: encodeUserID(d.RegisteredBy)}
	case event.NewAccountRegistration:
		kind, v = "NewAccountRegistration", wireNewAccountRegistration{AccountName: d.AccountName, Owner: encodeUserID(d.Owner)}
	case event.NewAuditLogEntry:
		kind, v = "NewAuditLogEntry", wireNewAuditLogEntry{Entry: encodeAuditLogEntryID(d.Entry), Category: d.Category, Fields: d.Fields}
	case event.ServerPing:
		kind, v = "ServerPing", wireServerPing{Server: uint32(d.Server)}
	case event.ServerQuit:
		kind, v = "ServerQuit", wireServerQuit{Server: uint32(d.Server), Epoch: uint64(d.Epoch)}
	default:
		return "", nil, fmt.Errorf("peer: unknown event.Details type %T", d)
	}
	raw, err := json.Marshal(v)
	return kind, raw, err
}

func decodeDetails(kind string, raw json.RawMessage) (event.Details, error) {
	switch kind {
	case "NewUser":
		var w wireNewUser
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		modes := make([]event.UserModeFlag, len(w.Modes))
		for i, m := range w.Modes {
			modes[i] = event.UserModeFlag(m)
		}
		return event.NewUser{User: decodeUserID(w.User), Nickname: w.Nickname, Username: w.Username, Hostname: w.Hostname, Realname: w.Realname, Modes: modes}, nil
	case "NickChange":
		var w wireNickChange
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.NickChange{User: decodeUserID(w.User), NewNickname: w.NewNickname}, nil
	case "UserQuit":
		var w wireUserQuit
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.UserQuit{User: decodeUserID(w.User), Reason: w.Reason}, nil
	case "ChannelJoin":
		var w wireChannelJoin
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		flags := make([]event.MembershipFlag, len(w.Flags))
		for i, f := range w.Flags {
			flags[i] = event.MembershipFlag(f)
		}
		return event.ChannelJoin{
			Membership: decodeMembershipID(w.Membership), User: decodeUserID(w.User),
			Channel: decodeChannelID(w.Channel), ChannelName: w.ChannelName, Flags: flags,
		}, nil
	case "ChannelPart":
		var w wireChannelPart
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.ChannelPart{Membership: decodeMembershipID(w.Membership), Reason: w.Reason}, nil
	case "ChannelModeChange":
		var w wireChannelModeChange
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		added := make(map[event.ChannelModeFlag]string, len(w.Added))
		for f, v := range w.Added {
			added[event.ChannelModeFlag(f)] = v
		}
		removed := make(map[event.ChannelModeFlag]struct{}, len(w.Removed))
		for _, f := range w.Removed {
			removed[event.ChannelModeFlag(f)] = struct{}{}
		}
		return event.ChannelModeChange{Channel: decodeChannelID(w.Channel), Added: added, Removed: removed}, nil
	case "MembershipModeChange":
		var w wireMembershipModeChange
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		added := make([]event.MembershipFlag, len(w.Added))
		for i, f := range w.Added {
			added[i] = event.MembershipFlag(f)
		}
		removed := make([]event.MembershipFlag, len(w.Removed))
		for i, f := range w.Removed {
			removed[i] = event.MembershipFlag(f)
		}
		return event.MembershipModeChange{Membership: decodeMembershipID(w.Membership), Added: added, Removed: removed}, nil
	case "TopicChange":
		var w wireTopicChange
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.TopicChange{Channel: decodeChannelID(w.Channel), Topic: w.Topic, SetBy: decodeUserID(w.SetBy)}, nil
	case "NewMessage":
		var w wireNewMessage
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		d := event.NewMessage{Message: decodeMessageID(w.Message), From: decodeUserID(w.From), Text: w.Text, IsNotice: w.IsNotice, Tags: w.Tags}
		if w.ToChannel != nil {
			c := decodeChannelID(*w.ToChannel)
			d.ToChannel = &c
		}
		if w.ToUser != nil {
			u := decodeUserID(*w.ToUser)
			d.ToUser = &u
		}
		return d, nil
	case "NewChannelRegistration":
		var w wireNewChannelRegistration
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.NewChannelRegistration{ChannelName: w.ChannelName, RegisteredBy: decodeUserID(w.RegisteredBy)}, nil
	case "NewAccountRegistration":
		var w wireNewAccountRegistration
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.NewAccountRegistration{AccountName: w.AccountName, Owner: decodeUserID(w.Owner)}, nil
	case "NewAuditLogEntry":
		var w wireNewAuditLogEntry
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.NewAuditLogEntry{Entry: decodeAuditLogEntryID(w.Entry), Category: w.Category, Fields: w.Fields}, nil
	case "ServerPing":
		var w wireServerPing
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.ServerPing{Server: ids.ServerId(w.Server)}, nil
	case "ServerQuit":
		var w wireServerQuit
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return event.ServerQuit{Server: ids.ServerId(w.Server), Epoch: ids.EpochId(w.Epoch)}, nil
	default:
		return nil, fmt.Errorf("peer: unknown event details kind %q", kind)
	}
}
