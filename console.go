package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Seednode/lorelord/games/lorelord"
	"github.com/pterm/pterm"
)

var (
	errQuit           = errors.New("quit")
	errUnknownCommand = errors.New("unknown command")
)

const consoleHelp = `start            begin a round (lore lord or host)
truth yes|no     finish your story and say whether it was true
reveal <1-3>     turn over one of your prop cards
pick <name>      choose the best story (lore lord)
skip             pass over a storyteller who left (lore lord or host)
state            redraw the table
help             show this list
quit             leave the game`

// consoleLogger sends game logs through pterm so they do not tear the board.
func consoleLogger(cfg *Config) func(string, ...any) {
	return func(format string, args ...any) {
		if !cfg.verbose {
			return
		}

		pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
	}
}

func playerName(s *lorelord.State, id string) string {
	if p, ok := s.Player(id); ok {
		return p.Name
	}
	if id == "" {
		return "nobody"
	}

	return "(departed)"
}

func roles(s *lorelord.State, id, selfID string) string {
	var r []string
	if id == s.LoreLordID {
		r = append(r, "lore lord")
	}
	if id == s.HostID {
		r = append(r, "host")
	}
	if id == s.ActiveStorytellerID {
		r = append(r, "telling")
	}
	if id == selfID {
		r = append(r, "you")
	}

	return strings.Join(r, ", ")
}

func renderScores(s *lorelord.State, selfID string) string {
	data := pterm.TableData{{"Player", "Score", ""}}
	for _, p := range s.Players {
		data = append(data, []string{p.Name, strconv.Itoa(s.Scores[p.ID]), roles(s, p.ID, selfID)})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err.Error()
	}

	return out
}

func renderProps(s *lorelord.State, id string) string {
	var b strings.Builder
	for i, card := range s.PropCards[id] {
		mark := " "
		if s.IsRevealed(id, i) {
			mark = "x"
		}
		b.WriteString(pterm.Sprintfln("[%s] %d. %s", mark, i+1, card))
	}

	return b.String()
}

func renderStories(s *lorelord.State) string {
	var b strings.Builder
	for _, id := range s.StorytellerQueue {
		status, told := s.StoryStatus[id]
		switch {
		case told && status.IsTrue:
			b.WriteString(pterm.Sprintfln("%s: true story, %d props", pterm.LightCyan(playerName(s, id)), len(s.RevealedProps[id])))
		case told:
			b.WriteString(pterm.Sprintfln("%s: invented, %d props", pterm.LightCyan(playerName(s, id)), len(s.RevealedProps[id])))
		case id == s.ActiveStorytellerID:
			b.WriteString(pterm.Sprintfln("%s: telling now", pterm.LightCyan(playerName(s, id))))
		default:
			b.WriteString(pterm.Sprintfln("%s: waiting", pterm.LightCyan(playerName(s, id))))
		}
	}

	return b.String()
}

// hints lists what selfID can do right now.
func hints(s *lorelord.State, selfID string) []string {
	var h []string

	switch s.Phase {
	case lorelord.PhaseLobby, lorelord.PhaseRoundComplete:
		if selfID == s.LoreLordID || selfID == s.HostID {
			h = append(h, "type 'start' to begin the next round")
		} else {
			h = append(h, fmt.Sprintf("waiting for %s to start the round", playerName(s, s.LoreLordID)))
		}
	case lorelord.PhaseStorytelling:
		if selfID == s.ActiveStorytellerID {
			h = append(h, "tell your story, 'reveal <n>' as props come up, then 'truth yes' or 'truth no'")
		} else {
			h = append(h, fmt.Sprintf("%s is telling a story", playerName(s, s.ActiveStorytellerID)))
		}
		if (selfID == s.LoreLordID || selfID == s.HostID) && !s.HasPlayer(s.ActiveStorytellerID) {
			h = append(h, "the storyteller left; type 'skip' to move on")
		}
	case lorelord.PhaseVoting:
		if selfID == s.LoreLordID {
			h = append(h, "type 'pick <name>' to crown the best story")
		} else {
			h = append(h, fmt.Sprintf("%s is choosing the best story", playerName(s, s.LoreLordID)))
		}
	}

	return h
}

// renderState draws the table as selfID sees it.
func renderState(s *lorelord.State, selfID string) string {
	var b strings.Builder

	b.WriteString(pterm.DefaultSection.Sprintf("Round %d: %s", s.Round, s.Phase))

	if s.Prompt != "" {
		b.WriteString(pterm.DefaultBox.WithTitle(pterm.LightYellow("|PROMPT|")).WithTitleTopCenter().Sprint(s.Prompt))
		b.WriteString("\n")
	}

	b.WriteString(renderScores(s, selfID))
	b.WriteString("\n")

	if s.Phase == lorelord.PhaseStorytelling || s.Phase == lorelord.PhaseVoting {
		b.WriteString(renderStories(s))

		if len(s.PropCards[selfID]) > 0 {
			b.WriteString(pterm.DefaultBox.WithTitle(pterm.LightGreen("|YOUR PROPS|")).WithTitleTopCenter().Sprint(strings.TrimSuffix(renderProps(s, selfID), "\n")))
			b.WriteString("\n")
		}
	}

	if s.Phase == lorelord.PhaseRoundComplete && s.WinnerID != "" {
		b.WriteString(pterm.Sprintfln("Best story: %s", pterm.LightGreen(playerName(s, s.WinnerID))))
	}

	for _, h := range hints(s, selfID) {
		b.WriteString(pterm.Sprintfln("> %s", h))
	}

	return b.String()
}

func findPlayer(s *lorelord.State, n string) (lorelord.Participant, bool) {
	if p, ok := s.PlayerByName(n); ok {
		return p, true
	}
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, n) {
			return p, true
		}
	}

	return lorelord.Participant{}, false
}

// parseCommand turns one console line into an action on behalf of selfID.
func parseCommand(line string, s *lorelord.State, selfID string) (lorelord.Action, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errUnknownCommand
	}

	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "start":
		return lorelord.StartRound{}, nil
	case "skip":
		return lorelord.SkipTurn{}, nil
	case "truth":
		if len(args) != 1 {
			return nil, errors.New("usage: truth yes|no")
		}
		switch strings.ToLower(args[0]) {
		case "yes", "y", "true":
			return lorelord.SetTruth{StorytellerID: selfID, IsTrue: true}, nil
		case "no", "n", "false":
			return lorelord.SetTruth{StorytellerID: selfID, IsTrue: false}, nil
		}
		return nil, fmt.Errorf("truth: %q is neither yes nor no", args[0])
	case "reveal":
		if len(args) != 1 {
			return nil, errors.New("usage: reveal <1-3>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("reveal: %w", err)
		}
		return lorelord.RevealProp{StorytellerID: selfID, Index: n - 1}, nil
	case "pick":
		if len(args) == 0 {
			return nil, errors.New("usage: pick <name>")
		}
		p, ok := findPlayer(s, strings.Join(args, " "))
		if !ok {
			return nil, fmt.Errorf("pick: no player named %q", strings.Join(args, " "))
		}
		return lorelord.PickBestStory{WinnerID: p.ID}, nil
	}

	return nil, fmt.Errorf("%w: %s", errUnknownCommand, fields[0])
}

// handleLine runs one console line. errQuit means the player is done.
func handleLine(line string, replica *lorelord.Replica, router lorelord.Router, selfID string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return nil
	case "quit", "exit":
		return errQuit
	case "help", "?":
		pterm.Println(consoleHelp)
		return nil
	case "state":
		pterm.Print(renderState(replica.State(), selfID))
		return nil
	}

	action, err := parseCommand(line, replica.State(), selfID)
	if err != nil {
		return err
	}

	replica.Echo(selfID, action)

	return router.Route(action)
}

// runConsole reads commands from in until quit, EOF or ctx ends.
func runConsole(ctx context.Context, in io.Reader, replica *lorelord.Replica, router lorelord.Router, selfID string) error {
	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	pterm.Info.Println("Type 'help' for commands.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			err := handleLine(line, replica, router, selfID)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				pterm.Error.Println(err)
			}
		}
	}
}
