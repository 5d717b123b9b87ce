// Package telemetry answers the system questions a user can ask: clock,
// uptime, processor, memory, disk, battery, temperature, connectivity and
// host identity.
//
// Kernel interfaces under /proc and /sys are read through an [afero.Fs] so
// tests can supply fixtures. Values that are absent on the host (no battery,
// no thermal zone) are reported as [Unavailable] rather than as errors.
package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// Unavailable is reported for a value the host does not expose.
const Unavailable = "उपलब्ध नहीं"

const (
	// NetworkOnline and NetworkOffline are the connectivity answers.
	NetworkOnline  = "इंटरनेट चालू है"
	NetworkOffline = "इंटरनेट बंद है"

	defaultProbeAddr   = "8.8.8.8:53"
	defaultProbeWait   = 2 * time.Second
	defaultCPUInterval = 200 * time.Millisecond
)

// DialFunc opens a network connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// StatfsFunc fills st for the file system containing path.
type StatfsFunc func(path string, st *unix.Statfs_t) error

// Option configures a [Probe].
type Option func(*Probe)

// WithFs sets the file system /proc and /sys are read from.
func WithFs(fs afero.Fs) Option {
	return func(p *Probe) { p.fs = fs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Probe) { p.now = now }
}

// WithDialer replaces the connectivity check dialer.
func WithDialer(dial DialFunc) Option {
	return func(p *Probe) { p.dial = dial }
}

// WithStatfs replaces unix.Statfs.
func WithStatfs(statfs StatfsFunc) Option {
	return func(p *Probe) { p.statfs = statfs }
}

// WithDiskPath sets the mount point whose usage Disk reports. Default: "/".
func WithDiskPath(p string) Option {
	return func(pr *Probe) { pr.diskPath = p }
}

// WithCPUInterval sets the sampling window of CPU. Default: 200ms.
func WithCPUInterval(d time.Duration) Option {
	return func(p *Probe) { p.cpuInterval = d }
}

// WithProbeAddr sets the address dialled by Network. Default: 8.8.8.8:53.
func WithProbeAddr(addr string) Option {
	return func(p *Probe) { p.probeAddr = addr }
}

// Probe reads host telemetry. It is safe for concurrent use.
type Probe struct {
	fs          afero.Fs
	now         func() time.Time
	dial        DialFunc
	statfs      StatfsFunc
	diskPath    string
	cpuInterval time.Duration
	probeAddr   string
}

// New returns a Probe reading the real host.
func New(opts ...Option) *Probe {
	p := &Probe{
		fs:          afero.NewReadOnlyFs(afero.NewOsFs()),
		now:         time.Now,
		dial:        (&net.Dialer{}).DialContext,
		statfs:      unix.Statfs,
		diskPath:    "/",
		cpuInterval: defaultCPUInterval,
		probeAddr:   defaultProbeAddr,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Time returns the local time as HH:MM:SS.
func (p *Probe) Time() string { return p.now().Format("15:04:05") }

// Date returns the date as "19 October 2026".
func (p *Probe) Date() string { return p.now().Format("02 January 2006") }

// Day returns the weekday name.
func (p *Probe) Day() string { return p.now().Weekday().String() }

// Uptime returns the time since boot as "H:MM:SS", prefixed with the day
// count once it exceeds a day.
func (p *Probe) Uptime() (string, error) {
	data, err := afero.ReadFile(p.fs, "/proc/uptime")
	if err != nil {
		return "", fmt.Errorf("telemetry: uptime: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", errors.New("telemetry: uptime: empty /proc/uptime")
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", fmt.Errorf("telemetry: uptime: %w", err)
	}
	return formatElapsed(time.Duration(secs) * time.Second), nil
}

func formatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	days := total / 86400
	rest := total % 86400
	clock := fmt.Sprintf("%d:%02d:%02d", rest/3600, rest%3600/60, rest%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}

// CPU returns processor utilisation over the sampling window as "12.5 %".
func (p *Probe) CPU(ctx context.Context) (string, error) {
	busy1, total1, err := p.cpuTimes()
	if err != nil {
		return "", err
	}
	t := time.NewTimer(p.cpuInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
	}
	busy2, total2, err := p.cpuTimes()
	if err != nil {
		return "", err
	}
	var pct float64
	if total2 > total1 {
		pct = 100 * float64(busy2-busy1) / float64(total2-total1)
	}
	return percent(pct), nil
}

// cpuTimes returns the busy and total jiffies of the aggregate cpu line.
func (p *Probe) cpuTimes() (busy, total uint64, err error) {
	f, err := p.fs.Open("/proc/stat")
	if err != nil {
		return 0, 0, fmt.Errorf("telemetry: cpu: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		// user nice system idle iowait irq softirq steal; guest time is
		// already included in user.
		fields = fields[1:min(len(fields), 9)]
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("telemetry: cpu: %w", err)
			}
			total += v
			if i != 3 && i != 4 { // idle, iowait
				busy += v
			}
		}
		return busy, total, nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, fmt.Errorf("telemetry: cpu: %w", err)
	}
	return 0, 0, errors.New("telemetry: cpu: no aggregate line in /proc/stat")
}

// RAM returns memory utilisation as "41.3 %".
func (p *Probe) RAM() (string, error) {
	f, err := p.fs.Open("/proc/meminfo")
	if err != nil {
		return "", fmt.Errorf("telemetry: ram: %w", err)
	}
	defer f.Close()

	vals := map[string]uint64{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if v, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			vals[key] = v
		}
	}
	total, avail := vals["MemTotal"], vals["MemAvailable"]
	if total == 0 {
		return "", errors.New("telemetry: ram: MemTotal missing from /proc/meminfo")
	}
	return percent(100 * float64(total-min(avail, total)) / float64(total)), nil
}

// Disk returns the usage of the configured mount point as "63.0 %". Blocks
// reserved for root are excluded from the total, as df does.
func (p *Probe) Disk() (string, error) {
	var st unix.Statfs_t
	if err := p.statfs(p.diskPath, &st); err != nil {
		return "", fmt.Errorf("telemetry: disk %q: %w", p.diskPath, err)
	}
	bsize := uint64(st.Bsize)
	used := (st.Blocks - st.Bfree) * bsize
	usable := used + st.Bavail*bsize
	if usable == 0 {
		return percent(0), nil
	}
	return percent(100 * float64(used) / float64(usable)), nil
}

// Battery returns the charge of the first battery as "87 %", or
// [Unavailable].
func (p *Probe) Battery() string {
	matches, _ := afero.Glob(p.fs, "/sys/class/power_supply/BAT*/capacity")
	slices.Sort(matches)
	for _, m := range matches {
		data, err := afero.ReadFile(p.fs, m)
		if err != nil {
			continue
		}
		if v, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			return fmt.Sprintf("%d %%", v)
		}
	}
	return Unavailable
}

// Temperature returns the reading of the first thermal zone as "45.0 °C",
// or [Unavailable].
func (p *Probe) Temperature() string {
	matches, _ := afero.Glob(p.fs, "/sys/class/thermal/thermal_zone*/temp")
	slices.SortFunc(matches, func(a, b string) int {
		return zoneIndex(a) - zoneIndex(b)
	})
	for _, m := range matches {
		data, err := afero.ReadFile(p.fs, m)
		if err != nil {
			continue
		}
		milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			continue
		}
		return fmt.Sprintf("%.1f °C", float64(milli)/1000)
	}
	return Unavailable
}

func zoneIndex(p string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(path.Base(path.Dir(p)), "thermal_zone"))
	return n
}

// Network reports whether a well-known DNS server is reachable within two
// seconds.
func (p *Probe) Network(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeWait)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.probeAddr)
	if err != nil {
		return NetworkOffline
	}
	_ = conn.Close()
	return NetworkOnline
}

// Hostname returns the kernel node name.
func (p *Probe) Hostname() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err == nil {
		if name := unix.ByteSliceToString(u.Nodename[:]); name != "" {
			return name, nil
		}
	}
	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("telemetry: hostname: %w", err)
	}
	return name, nil
}

// IP returns the first IPv4 address the host name resolves to, falling back
// to the first non-loopback interface address.
func (p *Probe) IP(ctx context.Context) (string, error) {
	host, err := p.Hostname()
	if err == nil {
		if addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host); err == nil {
			for _, a := range addrs {
				if v4 := a.IP.To4(); v4 != nil {
					return v4.String(), nil
				}
			}
		}
	}
	ifaddrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("telemetry: ip: %w", err)
	}
	for _, a := range ifaddrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() && ipn.IP.To4() != nil {
			return ipn.IP.String(), nil
		}
	}
	return "127.0.0.1", nil
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + " %"
}
