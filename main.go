package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"sharedink/internal/config"
	"sharedink/internal/export"
	boardnet "sharedink/internal/net"
	"sharedink/internal/state"
	"sharedink/internal/store"
	boardsync "sharedink/internal/sync"
)

func usage() {
	fmt.Fprintln(os.Stderr, `sharedink - collaborative canvas over the local network

usage:
  sharedink host [config.yaml]             serve a board to the LAN
  sharedink join [addr [canvas]]           follow a board (mDNS discovery when addr omitted)
  sharedink export <addr> <canvas> <file>  save a board as PDF`)
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "host":
		cfgPath := "sharedink.yaml"
		if len(os.Args) > 2 {
			cfgPath = os.Args[2]
		}
		err = runHost(ctx, log, cfgPath)
	case "join":
		addr, canvas := "", config.Default().CanvasID
		if len(os.Args) > 2 {
			addr = os.Args[2]
		}
		if len(os.Args) > 3 {
			canvas = os.Args[3]
		}
		err = runJoin(ctx, log, addr, canvas)
	case "export":
		if len(os.Args) < 5 {
			usage()
			os.Exit(2)
		}
		err = runExport(ctx, log, os.Args[2], os.Args[3], os.Args[4])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func runHost(ctx context.Context, log *slog.Logger, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	var backing boardsync.Store
	if cfg.DataPath != "" {
		db, err := store.OpenSQLite(cfg.DataPath, log)
		if err != nil {
			return err
		}
		defer db.Close()
		backing = db
		log.Info("board persisted", "path", cfg.DataPath)
	} else {
		backing = store.NewMemory(log)
		log.Info("board is in-memory only")
	}

	if cfg.MDNS {
		if port, err := listenPort(cfg.Listen); err == nil {
			if mdnsSrv, err := boardnet.Advertise(port); err == nil {
				defer mdnsSrv.Shutdown()
			} else {
				log.Warn("mDNS advertisement failed", "error", err)
			}
		}
	}

	if ip, err := boardnet.OutgoingIP(); err == nil {
		log.Info("hosting board", "canvas", cfg.CanvasID, "share", ip+cfg.Listen)
	}

	httpSrv := &http.Server{
		Addr:    cfg.Listen,
		Handler: boardnet.NewServer(backing, log).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutCtx)
	}()

	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("board server: %w", err)
	}
	return nil
}

func runJoin(ctx context.Context, log *slog.Logger, addr, canvas string) error {
	if addr == "" {
		found, err := discover(log)
		if err != nil {
			return err
		}
		addr = found
	}

	client, err := boardnet.Dial(ctx, addr, canvas, log)
	if err != nil {
		return err
	}
	defer client.Close()

	sess := state.NewSession(canvas, uuid.NewString(), log)
	rec := boardsync.NewReconciler(client, sess, canvas, log)
	if err := rec.Start(ctx); err != nil {
		return err
	}
	defer rec.Close()

	log.Info("joined board", "addr", addr, "canvas", canvas)

	feed, err := client.Watch(ctx, canvas)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case doc, ok := <-feed:
			if !ok {
				return errors.New("board connection closed")
			}
			log.Info("canvas updated", "version", doc.Version, "strokes", len(doc.Strokes))
		}
	}
}

func runExport(ctx context.Context, log *slog.Logger, addr, canvas, out string) error {
	client, err := boardnet.Dial(ctx, addr, canvas, log)
	if err != nil {
		return err
	}
	defer client.Close()

	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	doc, err := client.Load(loadCtx, canvas)
	if err != nil {
		return err
	}

	if err := export.PDF(out, doc); err != nil {
		return err
	}
	log.Info("board exported", "canvas", canvas, "strokes", len(doc.Strokes), "file", out)
	return nil
}

// discover finds the first board advertised on the local network.
func discover(log *slog.Logger) (string, error) {
	log.Info("looking for boards on the local network")
	found := make(chan string, 1)
	if err := boardnet.Browse(func(addr string) {
		select {
		case found <- addr:
		default:
		}
	}); err != nil {
		return "", fmt.Errorf("mDNS lookup: %w", err)
	}

	select {
	case addr := <-found:
		return addr, nil
	case <-time.After(3 * time.Second):
		return "", errors.New("no board found on the local network")
	}
}

// listenPort extracts the port number from a listen address like ":8888".
func listenPort(listen string) (int, error) {
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
