package dispatch_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/vaani/internal/dispatch"
	"github.com/MrWong99/vaani/internal/knowledge"
	"github.com/MrWong99/vaani/internal/telemetry"
)

var (
	_ dispatch.Telemetry = (*telemetry.Probe)(nil)
	_ dispatch.Knowledge = (*knowledge.Base)(nil)
)

type fakeTelemetry struct {
	uptimeErr error
}

func (fakeTelemetry) Time() string { return "10:30:00" }
func (fakeTelemetry) Date() string { return "19 October 2026" }
func (fakeTelemetry) Day() string { return "Monday" }
func (f fakeTelemetry) Uptime() (string, error) { return "2:00:00", f.uptimeErr }
func (fakeTelemetry) CPU(context.Context) (string, error) { return "12.5 %", nil }
func (fakeTelemetry) RAM() (string, error) { return "40.0 %", nil }
func (fakeTelemetry) Disk() (string, error) { return "70.0 %", nil }
func (fakeTelemetry) Battery() string { return telemetry.Unavailable }
func (fakeTelemetry) Temperature() string { return "45.0 °C" }
func (fakeTelemetry) Network(context.Context) string { return telemetry.NetworkOnline }
func (fakeTelemetry) IP(context.Context) (string, error) { return "192.168.1.5", nil }
func (fakeTelemetry) Hostname() (string, error) { return "raspberrypi", nil }

func standard(t *testing.T, tel dispatch.Telemetry) *dispatch.Dispatcher {
	t.Helper()
	kb := knowledge.New(map[knowledge.Topic]map[string]string{
		knowledge.IndiaGK: {"राजधानी": "भारत की राजधानी नई दिल्ली है"},
	})
	return dispatch.New(dispatch.Standard(dispatch.Deps{Telemetry: tel, Knowledge: kb}))
}

func TestStandard_CoversAllTags(t *testing.T) {
	t.Parallel()
	d := standard(t, fakeTelemetry{})
	for _, tag := range dispatch.AllTags {
		if !d.Handles(tag) {
			t.Errorf("no handler for %q", tag)
		}
	}
	if len(d.Tags()) != len(dispatch.AllTags) {
		t.Errorf("handlers = %d, tags = %d", len(d.Tags()), len(dispatch.AllTags))
	}
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag          dispatch.Tag
		text         string
		want         string
		wantFallback bool
		wantStop     bool
	}{
		{dispatch.TagTime, "", "अभी समय है 10:30:00", false, false},
		{dispatch.TagDate, "", "आज की तारीख है 19 October 2026", false, false},
		{dispatch.TagDay, "", "आज Monday है", false, false},
		{dispatch.TagUptime, "", "सिस्टम 2:00:00 से चालू है", false, false},
		{dispatch.TagCPU, "", "सीपीयू उपयोग 12.5 % है", false, false},
		{dispatch.TagBattery, "", "बैटरी उपलब्ध नहीं", false, false},
		{dispatch.TagTemperature, "", "तापमान 45.0 °C", false, false},
		{dispatch.TagNetwork, "", "इंटरनेट चालू है", false, false},
		{dispatch.TagIP, "", "आईपी एड्रेस है 192.168.1.5", false, false},
		{dispatch.TagHostname, "", "कंप्यूटर का नाम है raspberrypi", false, false},
		{dispatch.TagAssistantName, "", "मेरा नाम नोवा है", false, false},
		{dispatch.TagIndiaGK, "भारत की राजधानी क्या है", "भारत की राजधानी नई दिल्ली है", false, false},
		{dispatch.TagIndiaGK, "सबसे लंबी नदी", dispatch.ReplyNoKnowledge, true, false},
		{dispatch.TagHistory, "भारत की राजधानी", "भारत की राजधानी नई दिल्ली है", false, false},
		{dispatch.TagExit, "", dispatch.ReplyGoodbye, false, true},
		{dispatch.TagShutdown, "", "सिस्टम बंद कर रहा हूँ", false, true},
		{dispatch.Tag("weather"), "", "", true, false},
	}
	d := standard(t, fakeTelemetry{})
	for _, tc := range tests {
		t.Run(string(tc.tag), func(t *testing.T) {
			t.Parallel()
			resp, err := d.Dispatch(context.Background(), tc.tag, tc.text)
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if resp.Text != tc.want || resp.Fallback != tc.wantFallback || resp.Stop != tc.wantStop {
				t.Errorf("Dispatch(%s) = %+v, want text %q fallback %v stop %v", tc.tag, resp, tc.want, tc.wantFallback, tc.wantStop)
			}
		})
	}
}

func TestDispatch_HandlerError(t *testing.T) {
	t.Parallel()
	errBoom := errors.New("no /proc")
	d := standard(t, fakeTelemetry{uptimeErr: errBoom})
	_, err := d.Dispatch(context.Background(), dispatch.TagUptime, "")
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped %v", err, errBoom)
	}
}

func TestStandard_WithoutCollaborators(t *testing.T) {
	t.Parallel()
	d := dispatch.New(dispatch.Standard(dispatch.Deps{AssistantName: "वीरा"}))
	if d.Handles(dispatch.TagTime) || d.Handles(dispatch.TagHistory) {
		t.Error("handlers registered without collaborators")
	}
	resp, _ := d.Dispatch(context.Background(), dispatch.TagAssistantName, "")
	if resp.Text != "मेरा नाम वीरा है" {
		t.Errorf("name reply = %q", resp.Text)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	d := dispatch.New(map[dispatch.Tag]dispatch.Handler{
		dispatch.TagTime: func(context.Context, dispatch.Request) (dispatch.Response, error) { return dispatch.Response{}, nil },
		dispatch.TagDate: func(context.Context, dispatch.Request) (dispatch.Response, error) { return dispatch.Response{}, nil },
		dispatch.TagDay:  nil,
	})

	if err := dispatch.Validate([]string{"time", "date", "time"}, d); err != nil {
		t.Errorf("Validate(matching) = %v", err)
	}

	err := dispatch.Validate([]string{"time", "weather"}, d)
	if err == nil {
		t.Fatal("Validate should report mismatches")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"weather" has no handler`) || !strings.Contains(msg, `handler "date" has no corpus tag`) {
		t.Errorf("Validate error = %q", msg)
	}
	if strings.Contains(msg, `"day"`) {
		t.Errorf("nil handler should have been dropped: %q", msg)
	}
}

func TestTag_IsValid(t *testing.T) {
	t.Parallel()
	if !dispatch.TagIndianHistory.IsValid() || dispatch.Tag("weather").IsValid() {
		t.Error("IsValid mismatch")
	}
}
