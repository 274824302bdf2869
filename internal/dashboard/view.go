package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vigil-dev/vigil/internal/metrics"
	"github.com/vigil-dev/vigil/internal/ui"
)

// twoColumnMin is the terminal width from which metric cards pair up.
const twoColumnMin = 96

// maxDiskRows caps the mounts listed in the disk card.
const maxDiskRows = 5

// maxEventRows caps the entries shown in the event panel.
const maxEventRows = 12

// renderConnecting renders the dial/redial screen.
func (m Model) renderConnecting() string {
	var b strings.Builder
	b.WriteString(m.spin.View())
	b.WriteString(" Connecting to ")
	b.WriteString(ValueStyle.Render(m.TargetName()))

	if m.connectErr != "" {
		b.WriteString("\n\n")
		b.WriteString(UnavailableStyle.Render(truncate(m.connectErr, 70)))
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render(fmt.Sprintf("retrying every %s", reconnectEvery)))
	}

	b.WriteString("\n\n")
	b.WriteString(FooterStyle.Render("q quit"))

	if m.width <= 0 || m.height <= 0 {
		return b.String()
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

// renderDashboard renders the complete watch view.
func (m Model) renderDashboard() string {
	width := m.contentWidth()

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")

	cardWidth := width
	twoCol := width >= twoColumnMin
	if twoCol {
		cardWidth = (width - 2) / 2
	}

	cpu := m.renderCPUCard(cardWidth)
	mem := m.renderMemoryCard(cardWidth)
	disk := m.renderDiskCard(cardWidth)
	net := m.renderNetworkCard(cardWidth)

	if twoCol {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, cpu, mem),
			lipgloss.JoinHorizontal(lipgloss.Top, disk, net),
		))
	} else {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, cpu, mem, disk, net))
	}
	b.WriteString("\n")

	if m.showEvents {
		b.WriteString(m.renderEventsCard(width))
	} else {
		b.WriteString(m.renderProcessCard(width))
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return b.String()
}

// renderHeader renders the title line and the system summary line.
func (m Model) renderHeader(width int) string {
	glyph := lipgloss.NewStyle().Foreground(ColorHealthy).Render(StatusConnected)
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("vigil")

	parts := []string{m.TargetName()}
	if m.sess != nil {
		if fp := m.sess.Fingerprint(); fp != "" {
			parts = append(parts, truncate(fp, 27))
		}
	}
	parts = append(parts, m.refreshedText())

	stats := LabelStyle.Render(" | " + strings.Join(parts, " | "))
	line1 := HeaderStyle.Render(glyph + " " + title + stats)

	return line1 + "\n" + " " + m.renderSystemLine(width)
}

// refreshedText describes how stale the current snapshot is.
func (m Model) refreshedText() string {
	since := m.SecondsSinceUpdate()
	switch {
	case m.lastUpdate.IsZero():
		return "collecting..."
	case since == 0:
		return "refreshed just now"
	case since == 1:
		return "refreshed 1s ago"
	default:
		return fmt.Sprintf("refreshed %ds ago", since)
	}
}

// renderSystemLine renders hostname, OS, kernel, core count and uptime.
func (m Model) renderSystemLine(width int) string {
	if m.snap == nil {
		return LabelStyle.Render("waiting for first snapshot")
	}
	sys := m.snap.System
	if sys == nil {
		return UnavailableStyle.Render("system: " + m.unavailableReason(metrics.KindSystem))
	}

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
	if sys.Cores > 0 {
		parts = append(parts, fmt.Sprintf("%d cores", sys.Cores))
	}
	if sys.Uptime > 0 {
		parts = append(parts, "up "+formatUptime(sys.Uptime))
	}
	return LabelStyle.Render(truncate(strings.Join(parts, " · "), width))
}

// renderCard draws one bordered card with a title line on top.
func renderCard(title string, width int, lines ...string) string {
	content := CardTitleStyle.Render(title)
	if len(lines) > 0 {
		content += "\n" + strings.Join(lines, "\n")
	}
	return CardStyle.Width(width).Render(content)
}

// unavailableReason looks up why a kind is missing from the snapshot.
func (m Model) unavailableReason(kind metrics.Kind) string {
	reason := ""
	if m.snap != nil {
		reason = m.snap.Errors[kind]
	}
	if reason == "" {
		return "unavailable"
	}
	return truncate("unavailable: "+reason, 70)
}

// unavailableLine renders the dimmed placeholder for a missing kind.
func (m Model) unavailableLine(kind metrics.Kind) string {
	return UnavailableStyle.Render(m.unavailableReason(kind))
}

// renderCPUCard renders usage, load averages, and the history sparkline.
func (m Model) renderCPUCard(width int) string {
	inner := width - 4
	if m.snap == nil || m.snap.CPU == nil {
		return renderCard("CPU", width, m.unavailableLine(metrics.KindCPU))
	}
	cpu := m.snap.CPU

	head := MetricStyle(cpu.Percent).Render(fmt.Sprintf("%5.1f%%", cpu.Percent)) +
		LabelStyle.Render(fmt.Sprintf("  load %.2f %.2f %.2f",
			cpu.LoadAvg[0], cpu.LoadAvg[1], cpu.LoadAvg[2]))
	lines := []string{head}

	if spark := ui.RenderPercentSparkline(m.history.CPU(inner), inner); spark != "" {
		lines = append(lines, spark)
	}

	if len(cpu.PerCore) > 0 {
		lines = append(lines, renderCoreStrip(cpu.PerCore, inner))
	} else if cpu.Cores > 0 {
		lines = append(lines, LabelStyle.Render(fmt.Sprintf("%d cores", cpu.Cores)))
	}

	return renderCard("CPU", width, lines...)
}

// coreBlocks are the per-core strip characters, lowest load to highest.
var coreBlocks = []rune("▁▂▃▄▅▆▇█")

// renderCoreStrip draws one block per core, scaled by that core's load and
// colored by the busiest core.
func renderCoreStrip(perCore []float64, width int) string {
	label := "cores "
	room := width - len(label)
	if room < 1 {
		room = 1
	}
	if len(perCore) > room {
		perCore = perCore[:room]
	}

	var sb strings.Builder
	peak := 0.0
	for _, v := range perCore {
		level := int(v / 100 * float64(len(coreBlocks)-1))
		if level < 0 {
			level = 0
		}
		if level >= len(coreBlocks) {
			level = len(coreBlocks) - 1
		}
		sb.WriteRune(coreBlocks[level])
		if v > peak {
			peak = v
		}
	}

	return LabelStyle.Render(label) +
		lipgloss.NewStyle().Foreground(MetricColor(peak)).Render(sb.String())
}

// renderMemoryCard renders the usage bar and the byte breakdown.
func (m Model) renderMemoryCard(width int) string {
	inner := width - 4
	if m.snap == nil || m.snap.Memory == nil {
		return renderCard("Memory", width, m.unavailableLine(metrics.KindMemory))
	}
	mem := m.snap.Memory

	head := MetricStyle(mem.Percent).Render(fmt.Sprintf("%5.1f%%", mem.Percent)) +
		LabelStyle.Render("  "+formatBytes(mem.UsedBytes)+" / "+formatBytes(mem.TotalBytes))
	lines := []string{head, ProgressBar(inner, mem.Percent)}

	detail := "avail " + formatBytes(mem.AvailableBytes)
	if mem.CachedBytes > 0 {
		detail += " · cached " + formatBytes(mem.CachedBytes)
	}
	lines = append(lines, LabelStyle.Render(detail))

	return renderCard("Memory", width, lines...)
}

// renderDiskCard renders one line per mounted filesystem.
func (m Model) renderDiskCard(width int) string {
	inner := width - 4
	if m.snap == nil || len(m.snap.Disks) == 0 {
		return renderCard("Disk", width, m.unavailableLine(metrics.KindDisk))
	}

	disks := m.snap.Disks
	shown := disks
	if len(shown) > maxDiskRows {
		shown = shown[:maxDiskRows]
	}

	barWidth := 10
	mountWidth := inner - barWidth - 22
	if mountWidth < 6 {
		mountWidth = 6
	}

	var lines []string
	for _, d := range shown {
		mount := truncate(d.Mount, mountWidth)
		line := LabelStyle.Render(fmt.Sprintf("%-*s ", mountWidth, mount)) +
			ProgressBar(barWidth, d.Percent) +
			MetricStyle(d.Percent).Render(fmt.Sprintf(" %5.1f%%", d.Percent)) +
			LabelStyle.Render(" "+formatBytes(d.UsedBytes)+"/"+formatBytes(d.TotalBytes))
		lines = append(lines, line)
	}
	if rest := len(disks) - len(shown); rest > 0 {
		lines = append(lines, LabelStyle.Render(fmt.Sprintf("+%d more", rest)))
	}

	return renderCard("Disk", width, lines...)
}

// renderNetworkCard renders throughput rates, the receive sparkline, and
// cumulative counters.
func (m Model) renderNetworkCard(width int) string {
	inner := width - 4
	if m.snap == nil || m.snap.Network == nil {
		return renderCard("Network", width, m.unavailableLine(metrics.KindNetwork))
	}
	net := m.snap.Network

	down := lipgloss.NewStyle().Foreground(ColorAccent).Render("↓")
	up := lipgloss.NewStyle().Foreground(ColorAccent).Render("↑")
	head := down + " " + ValueStyle.Render(FormatRate(net.RxBytesPerSec)) +
		"  " + up + " " + ValueStyle.Render(FormatRate(net.TxBytesPerSec))
	lines := []string{head}

	rx, _ := m.history.NetworkRates(inner)
	if spark := ui.RenderSparkline(rx, inner, ColorGraph); spark != "" {
		lines = append(lines, spark)
	}

	lines = append(lines, LabelStyle.Render(
		"rx "+formatBytes(net.RxBytes)+" · tx "+formatBytes(net.TxBytes)))

	return renderCard("Network", width, lines...)
}

// renderProcessCard renders the process table with the selection cursor.
func (m Model) renderProcessCard(width int) string {
	inner := width - 4
	procs := m.processes()
	if m.snap == nil || len(procs) == 0 {
		return renderCard("Processes", width, m.unavailableLine(metrics.KindProcesses))
	}

	nameWidth := inner - 33
	if nameWidth < 8 {
		nameWidth = 8
	}

	header := LabelStyle.Render(fmt.Sprintf("  %6s %-9s %6s %6s  %s",
		"PID", "USER", "CPU%", "MEM%", "NAME"))
	lines := []string{header}

	// Keep the cursor visible by windowing the list around it.
	start := 0
	if m.selected >= processRows {
		start = m.selected - processRows + 1
	}
	end := start + processRows
	if end > len(procs) {
		end = len(procs)
	}

	for i := start; i < end; i++ {
		p := procs[i]
		row := fmt.Sprintf("%6d %-9s %6.1f %6.1f  %s",
			p.PID, truncate(p.User, 9), p.CPU, p.Memory, truncate(p.Name, nameWidth))
		if i == m.selected {
			lines = append(lines, SelectedRowStyle.Render("▸ "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}

	if len(procs) > end-start {
		lines = append(lines, LabelStyle.Render(
			fmt.Sprintf("%d-%d of %d", start+1, end, len(procs))))
	}

	return renderCard("Processes", width, lines...)
}

// renderEventsCard renders the session activity log, oldest first.
func (m Model) renderEventsCard(width int) string {
	inner := width - 4
	if m.sess == nil {
		return renderCard("Events", width, LabelStyle.Render("no session"))
	}

	events := m.sess.Events()
	if len(events) > maxEventRows {
		events = events[len(events)-maxEventRows:]
	}
	if len(events) == 0 {
		return renderCard("Events", width, LabelStyle.Render("no events yet"))
	}

	var lines []string
	for _, e := range events {
		stamp := LabelStyle.Render(e.Time.Format("15:04:05"))
		lines = append(lines, stamp+"  "+ValueStyle.Render(truncate(e.Message, inner-10)))
	}
	return renderCard("Events", width, lines...)
}

// renderFooter renders the keyboard hints and any pending notice.
func (m Model) renderFooter() string {
	hints := []string{
		"q quit",
		"r refresh",
		"j/k select",
		"x kill",
		"e events",
		"? help",
	}
	line := FooterStyle.Render(strings.Join(hints, " | "))
	if m.notice != "" {
		line += "  " + NoticeStyle.Render(truncate(m.notice, 60))
	}
	return line
}

// helpBindings are the shortcuts listed in the help overlay.
var helpBindings = []struct {
	Key  string
	Desc string
}{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "r", Desc: "Refresh now"},
	{Key: "j / down", Desc: "Select next process"},
	{Key: "k / up", Desc: "Select previous process"},
	{Key: "x", Desc: "Terminate selected process"},
	{Key: "e", Desc: "Toggle the event log"},
	{Key: "?", Desc: "Toggle this help"},
}

// Help overlay styles.
var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Width(12)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)
)

// renderHelpOverlay renders a centered help box with keyboard shortcuts.
func (m Model) renderHelpOverlay() string {
	var lines []string
	lines = append(lines, helpTitleStyle.Render("Keyboard Shortcuts"))
	lines = append(lines, "")
	for _, binding := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(binding.Key)+helpDescStyle.Render(binding.Desc))
	}
	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Press ? to close"))

	helpBox := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if m.width <= 0 || m.height <= 0 {
		return helpBox
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, helpBox)
}

// contentWidth bounds rendering to the terminal width with a sane default
// before the first WindowSizeMsg arrives.
func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	w := m.width - 2
	if w < 40 {
		w = 40
	}
	return w
}

// formatBytes formats a byte count as a human-readable string.
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

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSecond float64) string {
	if bytesPerSecond < 1024 {
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	} else if bytesPerSecond < 1024*1024 {
		return fmt.Sprintf("%.1f KB/s", bytesPerSecond/1024)
	} else if bytesPerSecond < 1024*1024*1024 {
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB/s", bytesPerSecond/(1024*1024*1024))
}

// formatUptime renders an uptime compactly: days and hours, hours and
// minutes, or minutes alone.
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

// truncate shortens a string to maxLen, marking the cut with an ellipsis.
func truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
