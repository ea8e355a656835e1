package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/HorseArcher567/applog/pkg/app"
	"github.com/HorseArcher567/applog/pkg/config"
	"github.com/HorseArcher567/applog/pkg/viewer"
	"github.com/HorseArcher567/applog/pkg/xlog"
	"github.com/HorseArcher567/applog/pkg/xlog/folder"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write a burst of mixed-level log lines",
	Long:  `Set up the logger from config and write debug, info, warning and error lines, printing every alert as it is raised`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, _ := cmd.Flags().GetStringArray("config")
		count, _ := cmd.Flags().GetInt("count")
		interval, _ := cmd.Flags().GetDuration("interval")

		framework, err := loadFramework(paths)
		if err != nil {
			return err
		}
		framework.Viewer = nil

		a, err := app.New(framework)
		if err != nil {
			return err
		}
		log := a.Logger()
		defer log.Close()

		sub := log.Subscribe(count)
		alerts := 0
		done := make(chan struct{})
		go func() {
			defer close(done)
			for e := range sub.C() {
				alerts++
				fmt.Fprintf(cmd.OutOrStdout(), "alert: %s", xlog.Render(e, xlog.DefaultFormat()))
			}
		}()

		log.Info("demo started", "count", count)
		for i := range count {
			req := log.With("request_id", uuid.NewString())
			switch {
			case i%50 == 49:
				req.Error("database connection timeout", "iteration", i)
			case i%10 == 9:
				req.Warn("high memory usage", "iteration", i)
			case i%2 == 0:
				req.Debug("detailed debug information", "iteration", i)
			default:
				req.Info("processing request", "iteration", i, "method", "GET", "path", "/api/users")
			}
			if interval > 0 {
				time.Sleep(interval)
			}
		}
		log.Info("demo finished")

		dir := log.Dir()
		sub.Close()
		<-done
		fmt.Fprintf(cmd.OutOrStdout(), "\nwrote %d lines to %s, %d alerts raised\n", count+2, dir, alerts)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the logger with the viewer and alert forwarding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, _ := cmd.Flags().GetStringArray("config")

		framework, err := loadFramework(paths)
		if err != nil {
			return err
		}
		if framework.Viewer == nil {
			framework.Viewer = &viewer.Config{Port: 9090}
		}

		a, err := app.New(framework)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	},
}

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Resolve and create the log folder of an application",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("app")
		group, _ := cmd.Flags().GetString("group")

		dir, err := folder.Resolve(name, group)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dir)
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List log files of a running viewer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		body, err := fetch(cmd.Context(), addr, "/files")
		if err != nil {
			return err
		}
		var files []viewer.FileInfo
		if err := json.Unmarshal(body, &files); err != nil {
			return fmt.Errorf("decode file list: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED\tACTIVE")
		for _, f := range files {
			active := ""
			if f.Active {
				active = "*"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", f.Name, f.Size, f.ModTime.Format(xlog.TimeLayout), active)
		}
		return w.Flush()
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail [file-name]",
	Short: "Print the last lines of a log file from a running viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		lines, _ := cmd.Flags().GetInt("lines")

		path := "/files/" + url.PathEscape(args[0])
		if lines > 0 {
			path += "?tail=" + strconv.Itoa(lines)
		}
		body, err := fetch(cmd.Context(), addr, path)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the merged configuration",
	Long:  `Print the configuration after layering every file and applying APPLOG_ environment overrides`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, _ := cmd.Flags().GetStringArray("config")
		name, _ := cmd.Flags().GetString("format")

		format, err := config.ParseFormat(name)
		if err != nil {
			return err
		}
		cfg, err := config.Load(paths...)
		if err != nil {
			return err
		}
		out, err := cfg.Dump(format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// loadFramework 没有配置文件时，输出到默认目录并打开控制台
func loadFramework(paths []string) (*app.Framework, error) {
	if len(paths) == 0 {
		return &app.Framework{
			Logger: xlog.Config{
				AppName: "applog",
				Level:   "debug",
				Console: xlog.ConsoleConfig{Enabled: true, Level: "info"},
			},
		}, nil
	}
	return app.LoadFramework(paths...)
}

func fetch(ctx context.Context, addr, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("viewer returned %s: %s", resp.Status, body)
	}
	return body, nil
}
