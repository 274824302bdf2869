package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/collector"
	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/metrics"
	"github.com/vigil-dev/vigil/internal/session"
	"github.com/vigil-dev/vigil/internal/ui"
)

// snapshotProcessRows caps the process table in text output.
const snapshotProcessRows = 15

// snapshotCommand connects, collects once, prints, and disconnects.
func snapshotCommand(target string, f *connectFlags, asJSON bool, kindNames []string) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	kinds, err := parseKinds(kindNames)
	if err != nil {
		return err
	}

	spec, err := resolveSpec(cfg, target, f)
	if err != nil {
		return err
	}
	spec.OnWarning = ui.PrintWarning

	sess, coll, err := dialForCommand(spec)
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	budget := spec.CommandTimeout * time.Duration(len(metrics.AllKinds())+1)
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	snap, err := coll.Collect(ctx, kinds...)
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return errors.Wrap(err, "Couldn't encode the snapshot as JSON")
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(renderSnapshot(snap))
	return nil
}

// dialForCommand opens a session with a spinner on stderr and returns a
// collector bound to it.
func dialForCommand(spec *connectSpec) (*session.Session, *collector.Collector, error) {
	spin := ui.NewSpinner("Connecting to " + spec.Display)
	spin.SetOutput(func(s string) { fmt.Fprint(os.Stderr, s) })
	if stdinIsTerminal() {
		spin.Start()
	}

	mgr := session.NewManager()
	sess, err := openSession(mgr, spec)
	if err != nil {
		spin.Fail()
		return nil, nil, err
	}
	spin.Success()

	coll := collector.New(sess)
	coll.SetCommandTimeout(spec.CommandTimeout)
	return sess, coll, nil
}

// parseKinds converts --kinds values. Empty means all kinds.
func parseKinds(names []string) ([]metrics.Kind, error) {
	kinds := make([]metrics.Kind, 0, len(names))
	for _, name := range names {
		k, err := metrics.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Unknown metric kind '%s'", name),
				"Valid kinds: cpu, memory, disk, network, processes, system")
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// renderSnapshot renders a snapshot as plain text, one section per kind.
// Missing kinds render their unavailability reason instead of vanishing.
func renderSnapshot(snap *metrics.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", snap.Target, snap.Taken.Format(time.RFC3339))

	if sys := snap.System; sys != nil {
		parts := []string{}
		if sys.Hostname != "" {
			parts = append(parts, sys.Hostname)
		}
		if sys.OS != "" {
			parts = append(parts, sys.OS)
		}
		if sys.Kernel != "" {
			parts = append(parts, sys.Kernel)
		}
		if sys.Arch != "" {
			parts = append(parts, sys.Arch)
		}
		if sys.Cores > 0 {
			parts = append(parts, fmt.Sprintf("%d cores", sys.Cores))
		}
		if sys.Uptime > 0 {
			parts = append(parts, "up "+formatUptime(sys.Uptime))
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(parts, " · "))
	} else {
		writeUnavailable(&b, snap, metrics.KindSystem)
	}
	b.WriteString("\n")

	if cpu := snap.CPU; cpu != nil {
		fmt.Fprintf(&b, "CPU      %5.1f%%  load %.2f %.2f %.2f\n",
			cpu.Percent, cpu.LoadAvg[0], cpu.LoadAvg[1], cpu.LoadAvg[2])
		if len(cpu.PerCore) > 0 {
			cores := make([]string, len(cpu.PerCore))
			for i, pct := range cpu.PerCore {
				cores[i] = fmt.Sprintf("%.0f%%", pct)
			}
			fmt.Fprintf(&b, "  cores  %s\n", strings.Join(cores, " "))
		}
	} else {
		writeUnavailable(&b, snap, metrics.KindCPU)
	}

	if mem := snap.Memory; mem != nil {
		fmt.Fprintf(&b, "Memory   %5.1f%%  %s / %s (%s available)\n",
			mem.Percent, formatBytes(mem.UsedBytes), formatBytes(mem.TotalBytes),
			formatBytes(mem.AvailableBytes))
	} else {
		writeUnavailable(&b, snap, metrics.KindMemory)
	}

	if net := snap.Network; net != nil {
		fmt.Fprintf(&b, "Network  rx %s/s  tx %s/s  (total rx %s, tx %s)\n",
			formatBytes(int64(net.RxBytesPerSec)), formatBytes(int64(net.TxBytesPerSec)),
			formatBytes(net.RxBytes), formatBytes(net.TxBytes))
	} else {
		writeUnavailable(&b, snap, metrics.KindNetwork)
	}
	b.WriteString("\n")

	if len(snap.Disks) > 0 {
		rows := make([][]string, 0, len(snap.Disks))
		for _, d := range snap.Disks {
			rows = append(rows, []string{
				d.Mount,
				d.FSType,
				formatBytes(d.UsedBytes),
				formatBytes(d.TotalBytes),
				fmt.Sprintf("%.0f%%", d.Percent),
			})
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "MOUNT", Width: 24},
			{Title: "TYPE", Width: 8},
			{Title: "USED", Width: 10},
			{Title: "TOTAL", Width: 10},
			{Title: "USE%", Width: 5},
		}, rows))
	} else {
		writeUnavailable(&b, snap, metrics.KindDisk)
	}
	b.WriteString("\n")

	if len(snap.Processes) > 0 {
		procs := snap.Processes
		if len(procs) > snapshotProcessRows {
			procs = procs[:snapshotProcessRows]
		}
		rows := make([][]string, 0, len(procs))
		for _, p := range procs {
			rows = append(rows, []string{
				strconv.Itoa(p.PID),
				truncate(p.Name, 26),
				fmt.Sprintf("%.1f", p.CPU),
				fmt.Sprintf("%.1f", p.Memory),
				p.Status,
			})
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "PID", Width: 7},
			{Title: "NAME", Width: 26},
			{Title: "CPU%", Width: 6},
			{Title: "MEM%", Width: 6},
			{Title: "STATUS", Width: 8},
		}, rows))
	} else {
		writeUnavailable(&b, snap, metrics.KindProcesses)
	}

	return b.String()
}

// writeUnavailable writes the reason a kind is missing, but only when the
// kind was actually requested (its absence is otherwise silence, not news).
func writeUnavailable(b *strings.Builder, snap *metrics.Snapshot, kind metrics.Kind) {
	reason, requested := snap.Errors[kind]
	if !requested {
		return
	}
	if reason == "" {
		reason = "unavailable"
	}
	fmt.Fprintf(b, "%-8s unavailable: %s\n", kindLabel(kind), reason)
}

func kindLabel(kind metrics.Kind) string {
	switch kind {
	case metrics.KindCPU:
		return "CPU"
	case metrics.KindMemory:
		return "Memory"
	case metrics.KindDisk:
		return "Disk"
	case metrics.KindNetwork:
		return "Network"
	case metrics.KindProcesses:
		return "Procs"
	case metrics.KindSystem:
		return "System"
	default:
		return string(kind)
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

func formatUptime(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
