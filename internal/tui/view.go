package tui

import (
	"fmt"
	"strings"

	"github.com/Illogicalll/sctui-sub000/internal/api"
)

var tabNames = [tabCount]string{"Likes", "Playlists", "Albums", "Following", "Search"}

func (m *Model) View() string {
	w := clamp(m.width-4, 60, 120)

	var b strings.Builder
	b.WriteString(m.viewHeader(w))
	b.WriteString("\n")

	switch {
	case m.confirmQuit:
		b.WriteString(m.viewConfirmQuit())
	case m.showHelp:
		b.WriteString(m.viewHelp())
	case m.showQueue:
		b.WriteString(m.viewQueue(w))
	default:
		b.WriteString(m.viewList(w))
	}

	b.WriteString("\n")
	b.WriteString(m.viewNowPlaying(w))

	if m.statusLine != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.statusLine))
	}
	if m.needReauth {
		b.WriteString("\n")
		b.WriteString(unplayableStyle.Render("session expired — restart to log in again"))
	}

	return b.String()
}

func (m *Model) viewHeader(w int) string {
	var tabs []string
	for i, name := range tabNames {
		if i == m.tab {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return titleStyle.Render("sctui") + "  " + strings.Join(tabs, "")
}

// listRows is how many entries fit between the header and the
// now-playing bar.
func (m *Model) listRows() int {
	return clamp(m.height-10, 5, 40)
}

func (m *Model) viewList(w int) string {
	if m.tab == tabSearch && m.searching {
		return listStyle.Width(w).Render("search: " + m.searchInput + "█")
	}

	rows := m.listRows()
	cursor := m.cursors[m.tab]
	var lines []string

	renderTracks := func(tracks []api.Track) {
		start := scrollStart(cursor, len(tracks), rows)
		for i := start; i < len(tracks) && i < start+rows; i++ {
			t := tracks[i]
			like := " "
			if t.Liked {
				like = "♥"
			}
			line := fmt.Sprintf("%s %-40s %-24s %8s %8s",
				like, truncate(t.Title, 40), truncate(t.Artists, 24), t.Duration, t.PlaybackCount)
			lines = append(lines, m.styleRow(line, i == cursor, !t.Playable()))
		}
	}

	switch {
	case m.browsingTracks():
		renderTracks(m.playbackTracks)

	case m.tab == tabLikes:
		renderTracks(m.likes)

	case m.tab == tabPlaylists:
		start := scrollStart(cursor, len(m.playlists), rows)
		for i := start; i < len(m.playlists) && i < start+rows; i++ {
			p := m.playlists[i]
			line := fmt.Sprintf("%-44s %6s tracks %10s", truncate(p.Title, 44), p.TrackCount, p.Duration)
			lines = append(lines, m.styleRow(line, i == cursor, false))
		}

	case m.tab == tabAlbums:
		start := scrollStart(cursor, len(m.albums), rows)
		for i := start; i < len(m.albums) && i < start+rows; i++ {
			a := m.albums[i]
			line := fmt.Sprintf("%-36s %-22s %6s %10s", truncate(a.Title, 36), truncate(a.Artists, 22), a.ReleaseYear, a.Duration)
			lines = append(lines, m.styleRow(line, i == cursor, false))
		}

	case m.tab == tabFollowing:
		start := scrollStart(cursor, len(m.following), rows)
		for i := start; i < len(m.following) && i < start+rows; i++ {
			lines = append(lines, m.styleRow(m.following[i].Name, i == cursor, false))
		}

	case m.tab == tabSearch:
		renderTracks(m.searchResults)
	}

	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("nothing here yet"))
	}
	return listStyle.Width(w).Render(strings.Join(lines, "\n"))
}

func (m *Model) styleRow(line string, selected, unplayable bool) string {
	switch {
	case selected:
		return selectedStyle.Render("> " + line)
	case unplayable:
		return unplayableStyle.Render("  " + line)
	default:
		return normalStyle.Render("  " + line)
	}
}

func (m *Model) viewNowPlaying(w int) string {
	track, ok := m.player.CurrentTrack()
	if !ok {
		return nowPlayingStyle.Width(w).Render(dimStyle.Render("Nothing playing — press <ENTER> on something to play!"))
	}

	state := statusPausedStyle.Render("⏸")
	if m.player.IsPlaying() {
		state = statusPlayingStyle.Render("▶")
	}

	elapsed := m.player.Elapsed()
	header := fmt.Sprintf("%s %s — %s", state, truncate(track.Title, 50), truncate(track.Artists, 30))

	modes := ""
	if m.queue.Shuffle {
		modes += " ⤨"
	}
	if m.queue.Repeat {
		modes += " ⟲"
	}
	timeline := fmt.Sprintf("%s / %s  vol %3.0f%%%s",
		api.FormatDuration(elapsed), track.Duration, m.player.Volume()*100, modes)

	barWidth := clamp(w-4, 20, 100)
	bar := renderProgress(elapsed, track.DurationMS, barWidth)
	wave := renderWave(m.player.WaveSnapshot(), barWidth)

	return nowPlayingStyle.Width(w).Render(header + "\n" + bar + "  " + timeline + "\n" + wave)
}

func renderProgress(elapsed, totalMS int64, width int) string {
	if totalMS <= 0 {
		totalMS = 1
	}
	filled := int(int64(width) * elapsed / totalMS)
	if filled > width {
		filled = width
	}
	return progressFillStyle.Render(strings.Repeat("━", filled)) +
		progressTrackStyle.Render(strings.Repeat("─", width-filled))
}

// renderWave draws the sample ring as a one-line block waveform.
var waveGlyphs = []rune(" ▁▂▃▄▅▆▇█")

func renderWave(samples []float32, width int) string {
	if len(samples) == 0 {
		return ""
	}

	var b strings.Builder
	step := len(samples) / width
	if step < 1 {
		step = 1
	}
	for col := 0; col < width && col*step < len(samples); col++ {
		// Peak over the column's window
		var peak float32
		for i := col * step; i < (col+1)*step && i < len(samples); i++ {
			v := samples[i]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		idx := int(peak * float32(len(waveGlyphs)-1))
		if idx >= len(waveGlyphs) {
			idx = len(waveGlyphs) - 1
		}
		b.WriteRune(waveGlyphs[idx])
	}
	return waveStyle.Render(b.String())
}

func (m *Model) viewQueue(w int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Queue"))

	if len(m.queue.Manual) == 0 {
		lines = append(lines, dimStyle.Render("  manual queue empty"))
	}
	for i, entry := range m.queue.Manual {
		lines = append(lines, normalStyle.Render(fmt.Sprintf("  %2d. %s — %s", i+1,
			truncate(entry.Track.Title, 40), truncate(entry.Track.Artists, 24))))
	}

	tracks := m.activeTracks()
	shown := 0
	for _, idx := range m.queue.Auto {
		if idx >= len(tracks) || shown >= 10 {
			break
		}
		lines = append(lines, dimStyle.Render(fmt.Sprintf("   ·  %s — %s",
			truncate(tracks[idx].Title, 40), truncate(tracks[idx].Artists, 24))))
		shown++
	}

	return popupStyle.Width(w).Render(strings.Join(lines, "\n"))
}

func (m *Model) viewHelp() string {
	rows := [][2]string{
		{"←/→/tab", "switch tab"},
		{"↑/↓", "move"},
		{"enter", "play / open"},
		{"space", "pause / resume"},
		{"shift+←/→", "previous / next track"},
		{"alt+←/→", "seek ±10s"},
		{"+/-", "volume"},
		{"s", "toggle shuffle"},
		{"r", "toggle repeat"},
		{"a", "add to queue"},
		{"n", "play next"},
		{"l", "like / unlike"},
		{"/", "search"},
		{"q", "queue"},
		{"?", "help"},
		{"esc", "back / quit"},
	}

	var lines []string
	lines = append(lines, titleStyle.Render("Keys"))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-12s", row[0])), helpDescStyle.Render(row[1])))
	}
	return popupStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) viewConfirmQuit() string {
	return popupStyle.Render("Quit sctui? " + helpKeyStyle.Render("y") + "/" + helpKeyStyle.Render("n"))
}

func scrollStart(cursor, total, rows int) int {
	if total <= rows {
		return 0
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start > total-rows {
		start = total - rows
	}
	return start
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
