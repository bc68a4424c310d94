package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/stmpl/log"
	"github.com/ardnew/stmpl/template"
)

// Render renders templates against a namespace built from data files and
// statements.
type Render struct {
	Language `embed:""`

	Execute  []string `help:"Statements to run into the namespace before rendering" short:"e"`
	Filename string   `help:"File of statements to run into the namespace"           short:"f"`
	Data     []string `help:"YAML or JSON data files merged into the namespace"      short:"d"`
	Output   string   `default:"-" help:"Output file or '-' for stdout"              short:"o"`
	Watch    bool     `help:"Re-render whenever an input file changes"               short:"w"`

	Templates []string `arg:"" default:"-" help:"Template files or '-' for stdin" name:"template" optional:""`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sources, err := uniqueSources(r.Templates)
	if err != nil {
		return err
	}

	p := &pass{
		Render:  r,
		sources: sources,
		stdin:   -1,
	}

	err = p.run(ctx)
	if err != nil || !r.Watch {
		return err
	}

	return r.watch(ctx, p)
}

// pass holds the state shared by successive renders of the same inputs.
type pass struct {
	*Render

	sources []source
	cache   *template.Cache
	stdin   int    // index of the stdin source, or -1 before it is read
	input   []byte // stdin content, read once
}

// namespace builds the default namespace: data files in order, then -e
// statements, then the statement file.
func (r *Render) namespace(ctx context.Context, ev template.Evaluator) (template.Namespace, error) {
	ns := make(template.Namespace)

	for _, path := range r.Data {
		data, err := readData(ctx, path)
		if err != nil {
			return nil, err
		}

		ns.Merge(data)
	}

	for _, src := range r.Execute {
		err := ev.ExecuteStatements(ctx, src, ns)
		if err != nil {
			return nil, err
		}
	}

	if r.Filename != "" {
		src, err := os.ReadFile(r.Filename)
		if err != nil {
			return nil, ErrReadSource.With(slog.String("file", r.Filename)).Wrap(err)
		}

		err = ev.ExecuteStatements(ctx, string(src), ns)
		if err != nil {
			return nil, err
		}
	}

	return ns, nil
}

func readData(ctx context.Context, path string) (template.Namespace, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadData.With(slog.String("file", path)).Wrap(err)
	}

	var data map[string]any

	err = yaml.UnmarshalContext(ctx, buf, &data)
	if err != nil {
		return nil, ErrReadData.With(slog.String("file", path)).Wrap(err)
	}

	return template.Namespace(data), nil
}

// run renders every source once. The namespace is rebuilt on each call so
// changed data and statement files take effect.
func (p *pass) run(ctx context.Context) (err error) {
	ev := p.evaluator()

	ns, err := p.namespace(ctx, ev)
	if err != nil {
		return err
	}

	// A new namespace invalidates every compiled template.
	p.cache = template.NewCache(p.options(ns)...)

	w, closeFn, err := p.output()
	if err != nil {
		return err
	}

	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = ErrWriteOutput.With(slog.String("file", p.Output)).Wrap(cerr)
		}
	}()

	for i, src := range p.sources {
		t, err := p.load(ctx, i, src)
		if err != nil {
			return err
		}

		err = p.render(ctx, w, src, t)
		if err != nil {
			return err
		}
	}

	return nil
}

// load returns the compiled template for src. Files stream through the
// cache; stdin is read once and its bytes reused on later passes.
func (p *pass) load(ctx context.Context, i int, src source) (*template.Template, error) {
	if src.isStdin() {
		if p.stdin < 0 {
			data, err := src.read()
			if err != nil {
				return nil, err
			}

			p.stdin, p.input = i, data
		}

		return p.cache.LoadBytes(ctx, p.input)
	}

	f, err := os.Open(src.path)
	if err != nil {
		return nil, ErrReadSource.With(slog.String("file", src.name)).Wrap(err)
	}
	defer f.Close()

	return p.cache.Load(ctx, f)
}

func (p *pass) render(ctx context.Context, w io.Writer, src source, t *template.Template) error {
	out, err := t.Render(ctx)
	if err != nil {
		return err
	}

	enc, err := t.Encode(out)
	if err != nil {
		return err
	}

	_, err = w.Write(enc)
	if err != nil {
		return ErrWriteOutput.With(slog.String("file", p.Output)).Wrap(err)
	}

	log.DebugContext(ctx, "rendered template",
		slog.String("template", src.name),
		slog.String("encoding", t.Encoding()),
		slog.Int("bytes", len(enc)),
	)

	return nil
}

func (p *pass) output() (io.Writer, func() error, error) {
	if p.Output == stdinSource {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.Create(p.Output)
	if err != nil {
		return nil, nil, ErrWriteOutput.With(slog.String("file", p.Output)).Wrap(err)
	}

	return f, f.Close, nil
}

// watched returns the resolved paths of every file input.
func (r *Render) watched(sources []source) (map[string]struct{}, error) {
	files := make(map[string]struct{})

	for _, src := range sources {
		if !src.isStdin() {
			files[src.path] = struct{}{}
		}
	}

	extra := append([]string{}, r.Data...)
	if r.Filename != "" {
		extra = append(extra, r.Filename)
	}

	for _, path := range extra {
		resolved, _, err := resolveFile(path)
		if err != nil {
			return nil, ErrWatch.With(slog.String("file", path)).Wrap(err)
		}

		files[resolved] = struct{}{}
	}

	return files, nil
}

// watch re-renders whenever an input file is written or replaced, until ctx
// is done. Parent directories are watched so editors that replace files by
// renaming are still seen.
func (r *Render) watch(ctx context.Context, p *pass) error {
	files, err := r.watched(p.sources)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrWatch.Wrap(errors.New("no files to watch"))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer w.Close()

	dirs := make(map[string]struct{})

	for file := range files {
		dir := filepath.Dir(file)
		if _, ok := dirs[dir]; ok {
			continue
		}

		dirs[dir] = struct{}{}

		err = w.Add(dir)
		if err != nil {
			return ErrWatch.With(slog.String("dir", dir)).Wrap(err)
		}
	}

	log.DebugContext(ctx, "watching inputs", slog.Int("files", len(files)))

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "watch error", slog.Any("error", err))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if _, ok := files[ev.Name]; !ok {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			log.DebugContext(ctx, "input changed",
				slog.String("file", ev.Name),
				slog.String("op", ev.Op.String()),
			)

			if err := p.run(ctx); err != nil {
				// Keep watching; the next save may fix it.
				log.ErrorContext(ctx, "render failed", slog.Any("error", err))
			}
		}
	}
}
