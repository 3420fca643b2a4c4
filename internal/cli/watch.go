package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ipdash/internal/dashboard"
)

// textView prints panels whose content changed since the last print.
type textView struct {
	mu   sync.Mutex
	out  io.Writer
	tail int
	last map[dashboard.Panel]dashboard.Update
	now  func() time.Time
}

func newTextView(out io.Writer, tail int) *textView {
	return &textView{
		out:  out,
		tail: tail,
		last: make(map[dashboard.Panel]dashboard.Update),
		now:  time.Now,
	}
}

func (v *textView) Apply(u dashboard.Update) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if prev, ok := v.last[u.Panel]; ok && sameContent(prev, u) {
		return
	}
	v.last[u.Panel] = u
	fmt.Fprintf(v.out, "[%s] %s\n", v.now().Format("15:04:05"), panelTitle(u.Panel))
	printUpdate(v.out, u, v.tail)
}

func (v *textView) Notify(n dashboard.Notice) {
	if n.Busy {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ts := v.now().Format("15:04:05")
	if n.Err != nil {
		fmt.Fprintf(v.out, "[%s] %s failed: %v\n", ts, n.Action, n.Err)
		return
	}
	fmt.Fprintf(v.out, "[%s] %s: %s\n", ts, n.Action, n.Message)
}

func sameContent(a, b dashboard.Update) bool {
	return a.Text == b.Text && (a.Err == nil) == (b.Err == nil) && reflect.DeepEqual(a.Table, b.Table)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the server and print changes",
	Long:  `Run the poll loop without the UI. Each panel is printed when its content changes. Stop with Ctrl+C.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl, err := appInstance.NewController(newTextView(cmd.OutOrStdout(), tail))
		if err != nil {
			return err
		}
		if err := ctrl.Start(); err != nil {
			ctrl.Close()
			return err
		}

		<-ctx.Done()
		fmt.Fprintln(cmd.ErrOrStderr(), "stopping...")
		return ctrl.Close()
	},
}

func init() {
	watchCmd.Flags().IntP("tail", "n", 10, "log lines to print per change (0 for all)")
	rootCmd.AddCommand(watchCmd)
}
