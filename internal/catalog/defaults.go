package catalog

import "github.com/remowork/soundswap/internal/domain"

var defaultEntries = []domain.SoundCatalogEntry{
	{
		ID:         domain.SoundCalling,
		MatchPaths: []string{"/client/calling.mp3", "/sounds/calling.mp3"},
		Label:      "Calling (ringback while waiting)",
	},
	{
		ID:         domain.SoundIncoming,
		MatchPaths: []string{"/client/incoming.mp3", "/sounds/incoming.mp3"},
		Label:      "Incoming call",
	},
	{
		ID:         domain.SoundOutgoing,
		MatchPaths: []string{"/client/outgoing.mp3", "/sounds/outgoing.mp3"},
		Label:      "Outgoing call",
	},
	{
		ID:         domain.SoundDisconnect,
		MatchPaths: []string{"/client/disconnect.mp3", "/sounds/disconnect.mp3"},
		Label:      "Call ended",
	},
	{
		ID:         domain.SoundDoorchime,
		MatchPaths: []string{"/client/doorchime.mp3", "/sounds/door_chime.mp3"},
		Label:      "Door chime (visitor knock)",
	},
	{
		ID:         domain.SoundCountdown,
		MatchPaths: []string{"/client/countdown.mp3", "/sounds/shutter_countdown.mp3"},
		Label:      "Snapshot countdown",
		Auxiliary:  true,
	},
}

var defaultPresets = []domain.PresetEntry{
	preset(domain.SoundCalling, "calling_soft", "soft_calling.mp3", "Soft ringback"),
	preset(domain.SoundCalling, "calling_marimba", "marimba_calling.mp3", "Marimba"),

	preset(domain.SoundIncoming, "incoming_phone", "phone_incoming.mp3", "Office phone"),
	preset(domain.SoundIncoming, "incoming_bell", "bell_incoming.mp3", "Desk bell"),

	preset(domain.SoundOutgoing, "outgoing_phone", "phone_outgoing.mp3", "Office phone"),
	preset(domain.SoundOutgoing, "outgoing_pulse", "pulse_outgoing.mp3", "Pulse tone"),

	preset(domain.SoundDisconnect, "disconnect_click", "click_disconnect.mp3", "Handset click"),
	preset(domain.SoundDisconnect, "disconnect_chime", "chime_disconnect.mp3", "Short chime"),

	preset(domain.SoundDoorchime, "doorchime_bell", "bell_doorchime.mp3", "Door bell"),
	preset(domain.SoundDoorchime, "doorchime_knock", "knock_doorchime.mp3", "Knock"),

	preset(domain.SoundCountdown, "countdown_beep", "beep_countdown.mp3", "Beep"),
	{Category: domain.SoundCountdown, PresetID: "countdown_silent", FileName: nil, Label: "Silent"},
}

func preset(category domain.SoundID, id, fileName, label string) domain.PresetEntry {
	return domain.PresetEntry{
		Category: category,
		PresetID: id,
		FileName: domain.StringPtr(fileName),
		Label:    label,
	}
}
