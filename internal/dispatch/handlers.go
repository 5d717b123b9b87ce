package dispatch

import (
	"context"

	"github.com/MrWong99/vaani/internal/knowledge"
)

// Fixed replies.
const (
	ReplyReady         = "मैं तैयार हूँ"
	ReplyListening     = "हाँ बताइए"
	ReplyGoodbye       = "अलविदा"
	ReplyNoKnowledge   = "मुझे इस बारे में पूरी जानकारी नहीं है"
	ReplyNotUnderstood = "मुझे समझ नहीं आया।"
	ReplyError         = "क्षमा करें, कुछ गलत हो गया"
)

// Telemetry is the host information the system handlers report.
// *telemetry.Probe implements it.
type Telemetry interface {
	Time() string
	Date() string
	Day() string
	Uptime() (string, error)
	CPU(ctx context.Context) (string, error)
	RAM() (string, error)
	Disk() (string, error)
	Battery() string
	Temperature() string
	Network(ctx context.Context) string
	IP(ctx context.Context) (string, error)
	Hostname() (string, error)
}

// Knowledge answers topic questions. *knowledge.Base implements it.
type Knowledge interface {
	Lookup(topic knowledge.Topic, query string) (string, bool)
	Search(query string) []knowledge.Result
}

// Deps are the collaborators of the standard handlers.
type Deps struct {
	Telemetry Telemetry
	Knowledge Knowledge

	// AssistantName is spoken for assistant_name. Default: "नोवा".
	AssistantName string
}

// Standard returns the handler table for every tag in [AllTags]. Handlers
// whose collaborator is nil are omitted.
func Standard(deps Deps) map[Tag]Handler {
	name := deps.AssistantName
	if name == "" {
		name = "नोवा"
	}

	h := map[Tag]Handler{
		TagVolumeUp:        say("वॉल्यूम बढ़ा रहा हूँ"),
		TagVolumeDown:      say("वॉल्यूम कम कर रहा हूँ"),
		TagMute:            say("म्यूट कर रहा हूँ"),
		TagBrightnessUp:    say("स्क्रीन की चमक बढ़ा रहा हूँ"),
		TagBrightnessDown:  say("स्क्रीन की चमक कम कर रहा हूँ"),
		TagOpenCamera:      say("कैमरा खोल रहा हूँ"),
		TagTakePhoto:       say("फोटो ले रहा हूँ"),
		TagRecordVideo:     say("वीडियो रिकॉर्ड कर रहा हूँ"),
		TagRecordAudio:     say("ऑडियो रिकॉर्ड कर रहा हूँ"),
		TagOpenBrowser:     say("ब्राउज़र खोल रहा हूँ"),
		TagShutdown:        stop("सिस्टम बंद कर रहा हूँ"),
		TagRestart:         stop("सिस्टम रीस्टार्ट कर रहा हूँ"),
		TagAssistantName:   say("मेरा नाम " + name + " है"),
		TagAssistantStatus: say(ReplyReady),
		TagExit:            stop(ReplyGoodbye),
	}

	if t := deps.Telemetry; t != nil {
		h[TagTime] = report(func(context.Context) (string, error) { return "अभी समय है " + t.Time(), nil })
		h[TagDate] = report(func(context.Context) (string, error) { return "आज की तारीख है " + t.Date(), nil })
		h[TagDay] = report(func(context.Context) (string, error) { return "आज " + t.Day() + " है", nil })
		h[TagUptime] = report(func(context.Context) (string, error) {
			v, err := t.Uptime()
			return "सिस्टम " + v + " से चालू है", err
		})
		h[TagCPU] = report(func(ctx context.Context) (string, error) {
			v, err := t.CPU(ctx)
			return "सीपीयू उपयोग " + v + " है", err
		})
		h[TagRAM] = report(func(context.Context) (string, error) {
			v, err := t.RAM()
			return "रैम उपयोग " + v + " है", err
		})
		h[TagDisk] = report(func(context.Context) (string, error) {
			v, err := t.Disk()
			return "डिस्क उपयोग " + v + " है", err
		})
		h[TagBattery] = report(func(context.Context) (string, error) { return "बैटरी " + t.Battery(), nil })
		h[TagTemperature] = report(func(context.Context) (string, error) { return "तापमान " + t.Temperature(), nil })
		h[TagNetwork] = report(func(ctx context.Context) (string, error) { return t.Network(ctx), nil })
		h[TagIP] = report(func(ctx context.Context) (string, error) {
			v, err := t.IP(ctx)
			return "आईपी एड्रेस है " + v, err
		})
		h[TagHostname] = report(func(context.Context) (string, error) {
			v, err := t.Hostname()
			return "कंप्यूटर का नाम है " + v, err
		})
	}

	if kb := deps.Knowledge; kb != nil {
		topics := map[Tag]knowledge.Topic{
			TagHistory:       knowledge.History,
			TagIndianHistory: knowledge.IndianHistory,
			TagPolitics:      knowledge.Politics,
			TagWorldGK:       knowledge.WorldGK,
			TagIndiaGK:       knowledge.IndiaGK,
		}
		for tag, topic := range topics {
			h[tag] = lookup(kb, topic)
		}
	}
	return h
}

func say(text string) Handler {
	return func(context.Context, Request) (Response, error) {
		return Response{Text: text}, nil
	}
}

// stop speaks text and then ends the session. Shutdown and restart only end
// the session: they speak their announcement first and never touch the host.
func stop(text string) Handler {
	return func(context.Context, Request) (Response, error) {
		return Response{Text: text, Stop: true}, nil
	}
}

func report(fn func(ctx context.Context) (string, error)) Handler {
	return func(ctx context.Context, _ Request) (Response, error) {
		text, err := fn(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: text}, nil
	}
}

// lookup answers from one knowledge topic, then from any topic in case the
// classifier picked a neighbouring one. A miss in every topic asks for the
// generative fallback; ReplyNoKnowledge is spoken only when no generative
// model is configured.
func lookup(kb Knowledge, topic knowledge.Topic) Handler {
	return func(_ context.Context, req Request) (Response, error) {
		if answer, ok := kb.Lookup(topic, req.Text); ok {
			return Response{Text: answer}, nil
		}
		if res := kb.Search(req.Text); len(res) > 0 {
			return Response{Text: res[0].Answer}, nil
		}
		return Response{Text: ReplyNoKnowledge, Fallback: true}, nil
	}
}
