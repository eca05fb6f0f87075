package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/KilimcininKorOglu/mvccview/internal/backend"
	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
	"github.com/KilimcininKorOglu/mvccview/internal/poller"
)

// Run shows the dashboard until the user quits or ctx is cancelled. The
// caller runs be's loop; Run only subscribes to it.
func Run(ctx context.Context, be *backend.DashboardBackend) error {
	p := tea.NewProgram(newModel(be), tea.WithAltScreen(), tea.WithContext(ctx))

	// Feed loop output into the program.
	be.Loop().Subscribe(poller.Listener{
		Snapshot: func(s *model.Snapshot) { p.Send(snapshotMsg{snap: s}) },
		Chain:    func(v *chain.View) { p.Send(chainMsg{view: v}) },
		Failure:  func(err error) { p.Send(pollFailedMsg{err: err}) },
	})
	be.Notifier().Subscribe(func(notify.Notification) { p.Send(notifyMsg{}) })

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
