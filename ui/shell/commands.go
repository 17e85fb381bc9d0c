package shell

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/layerscope/layerscope/inspect"
	"github.com/layerscope/layerscope/ml/data"
	"github.com/layerscope/layerscope/ml/train"
	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/layerscope/layerscope/ui/plots"
	"github.com/pkg/errors"
)

// maxCommandWords caps the prefix length Dispatch tries against the table.
const maxCommandWords = 4

type command struct {
	name    string
	aliases []string
	help    string
	run     func(s *Shell, args string) error
}

type commandTable struct {
	// byKey maps every name and alias to its command.
	byKey map[string]*command
	// order of primary names, for `help`.
	order []string
}

func (t *commandTable) register(cmd *command) {
	t.byKey[cmd.name] = cmd
	for _, alias := range cmd.aliases {
		t.byKey[alias] = cmd
	}
	t.order = append(t.order, cmd.name)
}

func (t *commandTable) lookup(key string) (*command, bool) {
	cmd, ok := t.byKey[key]
	return cmd, ok
}

func newCommandTable() *commandTable {
	t := &commandTable{byKey: make(map[string]*command)}
	for _, cmd := range []*command{
		{name: "quit", help: "quit: exit the shell", run: cmdQuit},
		{name: "help", help: "help [command]: list commands or describe one", run: cmdHelp},
		{name: "set model", help: "set model <name>: bring a registered model into context", run: cmdSetModel},
		{name: "resync", help: "resync [name]: rebind a session to its registered model, dropping hooks, captures and cache", run: cmdResync},
		{name: "summary", help: "summary [model]: per-layer table of the model tree", run: cmdSummary},
		{name: "nparams", aliases: []string{"nparam"},
			help: "nparams [model]: total trainable parameter count", run: cmdNParams},
		{name: "load image", help: "load image <file>: load an image from the configured image path", run: cmdLoadImage},
		{name: "load checkpoint", aliases: []string{"load chkp"},
			help: "load checkpoint [file]: restore model parameters from a checkpoint", run: cmdLoadCheckpoint},
		{name: "image next", help: "image next: advance the dataset and load its image", run: cmdImageNext},
		{name: "show image", aliases: []string{"show img"},
			help: "show image: render the current input image", run: cmdShowImage},
		{name: "infer image", aliases: []string{"infer"},
			help: "infer image [model]: forward pass and top-5 class probabilities", run: cmdInferImage},
		{name: "show activations", aliases: []string{"show act"},
			help: "show activations [model]: capture and chart the current layer's output", run: cmdShowActivations},
		{name: "show heatmap", aliases: []string{"show heat"},
			help: "show heatmap [model]: class activation map over the current image", run: cmdShowHeatmap},
		{name: "heatmap next", aliases: []string{"heat next"},
			help: "heatmap next: advance the dataset and show its heatmap", run: cmdHeatmapNext},
		{name: "show first layer weights", aliases: []string{"show flw"},
			help: "show first layer weights [model]: render the first convolution's filters as a grid", run: cmdShowFirstLayerWeights},
		{name: "show weights", aliases: []string{"show wei"},
			help: "show weights [model]: chart the current layer's weights", run: cmdShowWeights},
		{name: "show grads", help: "show grads [model]: chart the current layer's weight gradients", run: cmdShowGrads},
		{name: "set post process", aliases: []string{"set postp"},
			help: "set post process <relu|mean|max|none>: transform applied to captured and displayed tensors", run: cmdSetPostProcess},
		{name: "set class", help: "set class <index>: position the dataset at a class", run: cmdSetClass},
		{name: "up", help: "up: move the cursor to the previous leaf layer", run: cmdUp},
		{name: "down", help: "down: move the cursor to the next leaf layer", run: cmdDown},
	} {
		t.register(cmd)
	}
	return t
}

func cmdQuit(s *Shell, _ string) error {
	s.quit = true
	return nil
}

func cmdHelp(s *Shell, args string) error {
	if args = strings.TrimSpace(args); args != "" {
		cmd, ok := s.commands.lookup(args)
		if !ok {
			return errors.Errorf("unknown command %q", args)
		}
		s.message("%s", cmd.help)
		return nil
	}
	names := append([]string(nil), s.commands.order...)
	sort.Strings(names)
	s.message("Commands:")
	for _, name := range names {
		s.message("  %s", s.commands.byKey[name].help)
	}
	return nil
}

func cmdSetModel(s *Shell, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return errors.Errorf("usage: set model <name>")
	}
	model, ok := s.registry[name]
	if !ok {
		return errors.Errorf("no model registered under %q", name)
	}
	session, ok := s.sessions[name]
	if !ok {
		session = inspect.NewSession(name, model)
		s.sessions[name] = session
	}
	s.cur = session
	s.info("Model in context: %s", name)
	s.reportCursor(session)
	return nil
}

func cmdResync(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	model, ok := s.registry[session.Name()]
	if !ok {
		return errors.Errorf("no model registered under %q", session.Name())
	}
	session.Resync(model)
	s.info("Resynced %s", session.Name())
	s.reportCursor(session)
	return nil
}

func cmdSummary(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	rows := models.Summary(session.Model())
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Path", "Kind", "Params")
	for _, row := range rows {
		tbl.Row(inspect.Path(row.Path).String(), string(row.Kind), humanize.Comma(row.Params))
	}
	s.message("%s", tbl.Render())
	return nil
}

func cmdNParams(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	s.message("Number of trainable parameters: %s", humanize.Comma(models.ParamCount(session.Model())))
	return nil
}

func cmdLoadImage(s *Shell, args string) error {
	file := strings.TrimSpace(args)
	if file == "" {
		return errors.Errorf("usage: load image <file>")
	}
	path := file
	if s.config != nil && s.config.ImagePath != "" && !filepath.IsAbs(file) {
		path = filepath.Join(s.config.ImagePath, file)
	}
	size := data.DefaultImageSize
	if s.config != nil && s.config.ImageSize > 0 {
		size = s.config.ImageSize
	}
	img, err := data.LoadImage(path, size)
	if err != nil {
		return err
	}
	s.image = img
	s.info("Loaded %s: %s", path, img.Shape())
	return nil
}

func cmdLoadCheckpoint(s *Shell, args string) error {
	session, err := s.currentSession()
	if err != nil {
		return err
	}
	file := strings.TrimSpace(args)
	if file == "" {
		if s.config == nil || s.config.CheckpointName == "" {
			return errors.Errorf("usage: load checkpoint <file>")
		}
		file = s.config.CheckpointName
	}
	path := file
	if s.config != nil && s.config.CheckpointPath != "" && !filepath.IsAbs(file) {
		path = filepath.Join(s.config.CheckpointPath, file)
	}
	if err := train.RestoreCheckpoint(session.Model(), path); err != nil {
		return err
	}
	s.info("Restored %s from %s", session.Name(), path)
	return nil
}

func cmdImageNext(s *Shell, _ string) error {
	if s.dataset == nil {
		return errors.Errorf("no dataset configured")
	}
	path, class, err := s.dataset.Next()
	if err != nil {
		return err
	}
	img, err := s.dataset.Load()
	if err != nil {
		return err
	}
	s.image = img
	s.info("Image %s (class %s)", path, class)
	return cmdShowImage(s, "")
}

func cmdShowImage(s *Shell, _ string) error {
	if s.image == nil {
		return errors.Errorf("no image loaded, `load image <file>` or `image next` first")
	}
	rendered, err := s.plotter.Image(s.image, plots.ImageOptions{Title: "input"})
	if err != nil {
		return err
	}
	if rendered != "" {
		s.message("%s", rendered)
	}
	return nil
}

func cmdInferImage(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	out, err := s.forward(session)
	if err != nil {
		return err
	}
	probs := out.Softmax()
	indices, values := probs.TopK(5)
	for i, idx := range indices {
		s.message("%-10d%4.1f", idx, values[i]*100)
	}
	return nil
}

func cmdShowActivations(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	entry, err := session.Current()
	if err != nil {
		return err
	}
	s.message("Current layer is %s: %s", entry.Path, entry.Layer.Kind())

	s.applyPostProcess(entry.Capture)
	if _, err := session.Observe(entry); err != nil {
		return err
	}
	defer func() { _ = session.Unobserve(entry) }()

	out, err := s.forward(session)
	if err != nil {
		return err
	}
	s.message("Model guess: %d", out.ArgMax())

	captured := entry.Capture.Read(false)
	if captured == nil {
		return errors.Wrapf(inspect.ErrNoCapture, "layer %s", entry.Path)
	}
	return s.displayValues(captured, fmt.Sprintf("activations %s", entry.Path))
}

func cmdShowHeatmap(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	if s.image == nil {
		return errors.Errorf("no image loaded, `load image <file>` or `image next` first")
	}
	convPath, _, ok := inspect.FindLastOfKind(session.Model(), models.KindConv2D)
	if !ok {
		return errors.Errorf("model %s has no convolution layer", session.Name())
	}
	_, fcLayer, ok := inspect.FindLastOfKind(session.Model(), models.KindLinear)
	if !ok {
		return errors.Errorf("model %s has no linear layer", session.Name())
	}
	fc, ok := fcLayer.(models.Parameterized)
	if !ok || fc.Weight() == nil {
		return errors.Errorf("classifier layer carries no weights")
	}

	entry, err := session.Resolve(convPath)
	if err != nil {
		return err
	}
	if _, err := session.Observe(entry); err != nil {
		return err
	}
	defer func() { _ = session.Unobserve(entry) }()

	out, err := s.forward(session)
	if err != nil {
		return err
	}
	class := out.ArgMax()
	s.message("Model guess: %d", class)

	acts := entry.Capture.Read(true)
	if acts == nil {
		return errors.Wrapf(inspect.ErrNoCapture, "layer %s", entry.Path)
	}
	weights, err := classWeights(fc.Weight(), class)
	if err != nil {
		return err
	}
	cam, err := tensors.ChannelCombine(weights, acts)
	if err != nil {
		return err
	}
	rendered, err := s.plotter.Heatmap(s.image, cam, plots.HeatmapOptions{
		Title: fmt.Sprintf("class %d", class),
	})
	if err != nil {
		return err
	}
	if rendered != "" {
		s.message("%s", rendered)
	}
	return nil
}

func cmdHeatmapNext(s *Shell, _ string) error {
	if s.dataset == nil {
		return errors.Errorf("no dataset configured")
	}
	path, class, err := s.dataset.Next()
	if err != nil {
		return err
	}
	img, err := s.dataset.Load()
	if err != nil {
		return err
	}
	s.image = img
	s.info("Image %s (class %s)", path, class)
	return cmdShowHeatmap(s, "")
}

func cmdShowFirstLayerWeights(s *Shell, args string) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	_, layer, ok := inspect.FindFirstOfKind(session.Model(), models.KindConv2D)
	if !ok {
		return errors.Errorf("model %s has no convolution layer", session.Name())
	}
	conv, ok := layer.(models.Parameterized)
	if !ok || conv.Weight() == nil {
		return errors.Errorf("convolution layer carries no weights")
	}
	grid, err := filterGrid(conv.Weight())
	if err != nil {
		return err
	}
	rendered, err := s.plotter.Image(grid, plots.ImageOptions{Title: "first layer filters"})
	if err != nil {
		return err
	}
	if rendered != "" {
		s.message("%s", rendered)
	}
	return nil
}

func cmdShowWeights(s *Shell, args string) error {
	return s.showCursorParameter(args, "weights", models.Parameterized.Weight)
}

func cmdShowGrads(s *Shell, args string) error {
	return s.showCursorParameter(args, "grads", models.Parameterized.WeightGrad)
}

func cmdSetPostProcess(s *Shell, args string) error {
	name := strings.TrimSpace(args)
	var fn inspect.PostProcessFn
	switch name {
	case "relu":
		fn = func(t *tensors.Tensor) (*tensors.Tensor, error) { return t.ReLU(), nil }
	case "mean":
		fn = func(t *tensors.Tensor) (*tensors.Tensor, error) { return t.ChannelMeans() }
	case "max":
		fn = func(t *tensors.Tensor) (*tensors.Tensor, error) { return t.ChannelMaxes() }
	case "none", "":
		s.postName, s.postFn = "", nil
		if s.cur != nil {
			if entry, err := s.cur.Current(); err == nil {
				entry.Capture.ClearPostProcess()
			}
		}
		s.info("Post process cleared")
		return nil
	default:
		return errors.Errorf("unknown post process %q, want relu, mean, max or none", name)
	}
	s.postName, s.postFn = name, fn
	if s.cur != nil {
		if entry, err := s.cur.Current(); err == nil {
			if err := entry.Capture.SetPostProcess(name, fn); err != nil {
				return err
			}
		}
	}
	s.info("Post process set to %s", name)
	return nil
}

func cmdSetClass(s *Shell, args string) error {
	if s.dataset == nil {
		return errors.Errorf("no dataset configured")
	}
	arg := strings.TrimSpace(args)
	if arg == "" {
		return errors.Errorf("usage: set class <index>")
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return errors.Wrapf(err, "bad class index %q", arg)
	}
	if err := s.dataset.SetClass(idx); err != nil {
		return err
	}
	s.info("Class set to %d", idx)
	return nil
}

func cmdUp(s *Shell, _ string) error   { return s.moveCursor(inspect.Up) }
func cmdDown(s *Shell, _ string) error { return s.moveCursor(inspect.Down) }

func (s *Shell) moveCursor(dir inspect.Direction) error {
	session, err := s.currentSession()
	if err != nil {
		return err
	}
	var entry *inspect.Entry
	var moveErr error
	if dir == inspect.Up {
		entry, moveErr = session.Up()
	} else {
		entry, moveErr = session.Down()
	}
	if errors.Is(moveErr, inspect.ErrBoundary) {
		s.message("Already at the %s of the model", boundaryName(dir))
		return nil
	}
	if moveErr != nil {
		return moveErr
	}
	s.message("Current layer is %s: %s", entry.Path, entry.Layer.Kind())
	return nil
}

func boundaryName(dir inspect.Direction) string {
	if dir == inspect.Up {
		return "top"
	}
	return "bottom"
}

func (s *Shell) reportCursor(session *inspect.Session) {
	entry, err := session.Current()
	if err != nil {
		s.message("Cursor unset: %v", err)
		return
	}
	s.message("Current layer is %s: %s", entry.Path, entry.Layer.Kind())
}

// forward runs the model over the current image.
func (s *Shell) forward(session *inspect.Session) (*tensors.Tensor, error) {
	if s.image == nil {
		return nil, errors.Errorf("no image loaded, `load image <file>` or `image next` first")
	}
	out, err := session.Model().Forward(s.image)
	if err != nil {
		return nil, errors.WithMessagef(err, "forward pass of %s failed", session.Name())
	}
	return out, nil
}

// applyPostProcess mirrors the shell-level transform onto a capture store.
func (s *Shell) applyPostProcess(capture *inspect.Capture) {
	if s.postFn == nil {
		capture.ClearPostProcess()
		return
	}
	_ = capture.SetPostProcess(s.postName, s.postFn)
}

// showCursorParameter charts a parameter of the cursor layer, applying the
// shell post-process transform first.
func (s *Shell) showCursorParameter(args, what string, get func(models.Parameterized) *tensors.Tensor) error {
	session, err := s.sessionFor(args)
	if err != nil {
		return err
	}
	entry, err := session.Current()
	if err != nil {
		return err
	}
	s.message("Current layer is %s: %s", entry.Path, entry.Layer.Kind())
	param, ok := entry.Layer.(models.Parameterized)
	if !ok {
		return errors.Errorf("layer %s (%s) has no %s", entry.Path, entry.Layer.Kind(), what)
	}
	value := get(param)
	if value == nil {
		return errors.Errorf("layer %s (%s) has no %s", entry.Path, entry.Layer.Kind(), what)
	}
	if s.postFn != nil {
		processed, err := s.postFn(value)
		if err != nil {
			return errors.WithMessagef(err, "post process %q failed", s.postName)
		}
		value = processed
	}
	return s.displayValues(value, fmt.Sprintf("%s %s", what, entry.Path))
}

// displayValues reduces a tensor to a rank-1 series and bar-charts it.
func (s *Shell) displayValues(t *tensors.Tensor, title string) error {
	if t.Rank() > 1 {
		reduced, err := t.ChannelMeans()
		if err != nil {
			return err
		}
		t = reduced
	}
	values := make([]float64, t.Size())
	for i, v := range t.Flat() {
		values[i] = float64(v)
	}
	rendered, err := s.plotter.BarChart(values, plots.BarChartOptions{
		Title:       title,
		AnnotateTop: 5,
	})
	if err != nil {
		return err
	}
	if rendered != "" {
		s.message("%s", rendered)
	}
	return nil
}

// classWeights extracts the classifier weight row of one class, shaped [C].
func classWeights(w *tensors.Tensor, class int) (*tensors.Tensor, error) {
	if w.Rank() != 2 {
		return nil, errors.Errorf("classifier weights must be rank 2, got %s", w.Shape())
	}
	numClasses, numChannels := w.Dim(0), w.Dim(1)
	if class < 0 || class >= numClasses {
		return nil, errors.Errorf("class %d out of range [0, %d)", class, numClasses)
	}
	row := make([]float32, numChannels)
	copy(row, w.Flat()[class*numChannels:(class+1)*numChannels])
	return tensors.FromFlat(row, numChannels)
}

// filterGrid lays convolution filters [F, C, K, K] out as a square image
// grid [C, S*K, S*K], empty cells filled with ones, values normalized to
// [0, 1] so the image sink does not clamp everything away.
func filterGrid(w *tensors.Tensor) (*tensors.Tensor, error) {
	if w.Rank() != 4 {
		return nil, errors.Errorf("convolution weights must be rank 4, got %s", w.Shape())
	}
	numFilters, numChannels := w.Dim(0), w.Dim(1)
	kh, kw := w.Dim(2), w.Dim(3)
	if kh != kw {
		return nil, errors.Errorf("only square kernels supported, got %dx%d", kh, kw)
	}
	if numChannels != 1 && numChannels != 3 {
		return nil, errors.Errorf("can only render 1- or 3-channel filters, got %d", numChannels)
	}
	side := 1
	for side*side < numFilters {
		side++
	}
	normalized := w.Normalize01()

	grid := tensors.Ones(numChannels, side*kh, side*kw)
	for f := 0; f < numFilters; f++ {
		row, col := f/side, f%side
		for c := 0; c < numChannels; c++ {
			for y := 0; y < kh; y++ {
				for x := 0; x < kw; x++ {
					grid.Set(normalized.At(f, c, y, x), c, row*kh+y, col*kw+x)
				}
			}
		}
	}
	return grid, nil
}
