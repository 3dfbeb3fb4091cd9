package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canonmap/canonmap/pkg/api"
	"github.com/canonmap/canonmap/pkg/config"
	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/remote"
	"github.com/canonmap/canonmap/pkg/routine"
	"github.com/canonmap/canonmap/pkg/store"
	"github.com/canonmap/canonmap/web"
)

func main() {
	fmt.Println(`{"level":"info","msg":"system_started","component":"canonmap-d"}`)

	cfg, err := config.Load(flag.NewFlagSet("canonmap-d", flag.ExitOnError), os.Args[1:])
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"failed_to_load_config","error":"%v"}`+"\n", err)
		os.Exit(1)
	}

	g, err := graph.LoadFile(cfg.DataPath)
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"failed_to_load_graph","path":"%s","error":"%v"}`+"\n", cfg.DataPath, err)
		os.Exit(1)
	}
	fmt.Printf(`{"level":"info","msg":"graph_loaded","path":"%s","nodes":%d,"links":%d}`+"\n",
		cfg.DataPath, len(g.Nodes), len(g.Links))

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"failed_to_init_store","error":"%v"}`+"\n", err)
		os.Exit(1)
	}
	fmt.Printf(`{"level":"info","msg":"store_initialized","path":"%s"}`+"\n", cfg.DBPath)

	tracker := routine.NewTracker(st, nil)

	var remoteClient api.RemoteClient
	if cfg.RemoteConfigured() {
		rc := remote.NewClient(cfg.Remote.Owner, cfg.Remote.Repo, cfg.Remote.Token, cfg.Remote.FilePath)
		if err := rc.CheckAccess(context.Background()); err != nil {
			fmt.Printf(`{"level":"fatal","msg":"remote_access_check_failed","error":"%v"}`+"\n", err)
			os.Exit(1)
		}
		remoteClient = rc
		fmt.Printf(`{"level":"info","msg":"remote_configured","repo":"%s/%s"}`+"\n",
			cfg.Remote.Owner, cfg.Remote.Repo)
	} else {
		fmt.Println(`{"level":"info","msg":"remote_not_configured","mode":"local_only"}`)
	}

	staticFS := resolveStatic(cfg.WebDir)

	srv := api.NewServer(g, tracker, cfg.Addr, api.Options{
		Remote:        remoteClient,
		DataPath:      cfg.DataPath,
		TemplateDir:   cfg.TemplateDir,
		VacationStart: cfg.VacationStart,
		StaticFS:      staticFS,
		BackupDir:     cfg.BackupDir,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		fmt.Printf(`{"level":"info","msg":"shutdown_initiated","signal":"%s"}`+"\n", sig)
	case err := <-errCh:
		fmt.Printf(`{"level":"fatal","msg":"server_failed","error":"%v"}`+"\n", err)
		st.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_stop_server","error":"%v"}`+"\n", err)
	}

	if err := st.Close(); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_close_store","error":"%v"}`+"\n", err)
	} else {
		fmt.Println(`{"level":"info","msg":"store_closed"}`)
	}

	fmt.Println(`{"level":"info","msg":"shutdown_complete"}`)
}

// resolveStatic prefers an on-disk web dir for development and falls
// back to the embedded viewer.
func resolveStatic(webDir string) fs.FS {
	if webDir != "" {
		if info, err := os.Stat(webDir); err == nil && info.IsDir() {
			return os.DirFS(webDir)
		}
		fmt.Printf(`{"level":"warn","msg":"web_dir_unusable","path":"%s"}`+"\n", webDir)
	}
	assets, err := web.Assets()
	if err != nil {
		fmt.Printf(`{"level":"warn","msg":"embedded_assets_unavailable","error":"%v"}`+"\n", err)
		return nil
	}
	return assets
}
