package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/born-ml/lingua/internal/attnexport"
	"github.com/born-ml/lingua/internal/config"
	"github.com/born-ml/lingua/internal/generate"
	"github.com/born-ml/lingua/internal/logger"
	"github.com/born-ml/lingua/internal/metrics"
	"github.com/born-ml/lingua/internal/seq2seq"
	"github.com/born-ml/lingua/internal/serialization"
	"github.com/born-ml/lingua/internal/tokenizer"
)

// commonFlags are accepted by every command that builds a model.
type commonFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	snapshot   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file (defaults when empty)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format override: console or json")
	fs.StringVar(&c.snapshot, "snapshot", "", "SafeTensors snapshot override")
}

// env is everything a command needs, built from flags and the config file.
type env struct {
	cfg     config.Config
	log     zerolog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func (c *commonFlags) load() (*env, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return nil, err
		}
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	if c.snapshot != "" {
		cfg.SnapshotPath = c.snapshot
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &env{
		cfg:     cfg,
		log:     logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr),
		reg:     reg,
		metrics: metrics.New(reg),
	}, nil
}

func (e *env) model() (*seq2seq.Transformer, error) {
	return seq2seq.New(e.cfg.ModelConfig(),
		seq2seq.WithLogger(e.log),
		seq2seq.WithMetrics(e.metrics))
}

func (e *env) tokenizer() (tokenizer.Tokenizer, error) {
	t := e.cfg.Tokenizer
	switch t.Type {
	case config.TokenizerWordLevel:
		return tokenizer.LoadVocabFile(t.Path, tokenizer.DefaultSpecialNames())
	case config.TokenizerHuggingFace:
		return tokenizer.LoadFromHuggingFace(t.Path)
	case config.TokenizerTikToken:
		enc := t.Encoding
		if enc == "" {
			enc = "cl100k_base"
		}
		return tokenizer.NewTikToken(enc, tokenizer.Specials{
			Bos: e.cfg.StartTokenIndex,
			Eos: e.cfg.EndTokenIndex,
			Pad: e.cfg.PaddingTokenIndex,
			Unk: -1,
		})
	default:
		return nil, fmt.Errorf("unknown tokenizer type %q", t.Type)
	}
}

// translator builds the model, tokenizer and translator, loading the
// configured snapshot when there is one.
func (e *env) translator(opts ...generate.Option) (*generate.Translator, error) {
	model, err := e.model()
	if err != nil {
		return nil, err
	}
	tok, err := e.tokenizer()
	if err != nil {
		return nil, err
	}

	opts = append([]generate.Option{
		generate.WithMaxLength(e.cfg.MaximumOutputLength),
		generate.WithBatchSize(e.cfg.BatchSize),
		generate.WithLogger(e.log),
		generate.WithMetrics(e.metrics),
	}, opts...)
	tr, err := generate.NewTranslator(model, tok, opts...)
	if err != nil {
		return nil, err
	}

	if e.cfg.SnapshotPath != "" {
		if err := tr.Reload(e.cfg.SnapshotPath); err != nil {
			return nil, err
		}
	} else {
		e.log.Warn().Msg("no snapshot configured, translating with random parameters")
	}
	return tr, nil
}

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	out := fs.String("out", "", "Output snapshot path (defaults to snapshot_path)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := common.load()
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = e.cfg.SnapshotPath
	}
	if path == "" {
		return errors.New("init: -out or snapshot_path is required")
	}

	model, err := e.model()
	if err != nil {
		return err
	}
	meta := map[string]string{
		"tying":   string(model.TyingMode()),
		"version": version,
	}
	if err := serialization.Save(path, model.StateDict(), meta); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "wrote %s: %d parameters, tying %s\n", path, model.NumParameters(), model.TyingMode())
	return err
}

func runTranslate(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	maxLen := fs.Int("max-len", -1, "Generated tokens per text (defaults to maximum_output_length)")
	attnOut := fs.String("attention-out", "", "Write the attention maps of the first batch as an Arrow IPC stream")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := common.load()
	if err != nil {
		return err
	}
	tr, err := e.translator()
	if err != nil {
		return err
	}

	texts := fs.Args()
	if len(texts) == 0 {
		if texts, err = readLines(stdin); err != nil {
			return err
		}
	}

	var opts []generate.TranslateOption
	if *maxLen >= 0 {
		opts = append(opts, generate.MaxLength(*maxLen))
	}
	if *attnOut != "" {
		opts = append(opts, generate.Attention())
	}
	res, err := tr.Translate(context.Background(), texts, opts...)
	if err != nil {
		return err
	}
	for _, text := range res.Texts {
		if _, err := fmt.Fprintln(stdout, text); err != nil {
			return err
		}
	}

	if *attnOut != "" {
		if len(res.Captures) == 0 {
			return errors.New("translate: no attention captured, set capture_attention in the config")
		}
		return writeCapture(*attnOut, res.Captures[0])
	}
	return nil
}

func writeCapture(path string, c attnexport.Capture) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := attnexport.WriteIPC(f, memory.NewGoAllocator(), c); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runServe(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("serve-attention", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "", "Arrow Flight listen address (defaults to attention_address)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := common.load()
	if err != nil {
		return err
	}
	if !e.cfg.CaptureAttention {
		return errors.New("serve-attention: capture_attention is disabled in the config")
	}
	listen := *addr
	if listen == "" {
		listen = e.cfg.AttentionAddress
	}
	if listen == "" {
		listen = "localhost:8815"
	}

	flight, err := attnexport.NewFlightServer(listen, e.log)
	if err != nil {
		return err
	}
	tr, err := e.translator(generate.WithPublisher(flight))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := flight.Serve(); err != nil {
			e.log.Error().Err(err).Msg("flight server stopped")
			stop()
		}
	}()
	defer flight.Shutdown()

	if e.cfg.MetricsAddress != "" {
		srv := metricsServer(e.cfg.MetricsAddress, e.reg)
		go func() {
			e.log.Info().Str("addr", srv.Addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go reloadOnHangup(ctx, tr, e)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed: keep publishing the last capture until signalled.
				lines = nil
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			res, err := tr.Translate(ctx, []string{line}, generate.Attention())
			if err != nil {
				e.log.Error().Err(err).Msg("translate")
				continue
			}
			if _, err := fmt.Fprintln(stdout, res.Texts[0]); err != nil {
				return err
			}
		}
	}
}

// reloadOnHangup reloads the configured snapshot on SIGHUP.
func reloadOnHangup(ctx context.Context, tr *generate.Translator, e *env) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if e.cfg.SnapshotPath == "" {
				e.log.Warn().Msg("SIGHUP ignored, no snapshot configured")
				continue
			}
			if err := tr.Reload(e.cfg.SnapshotPath); err != nil {
				e.log.Error().Err(err).Msg("reload snapshot")
			}
		}
	}
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
