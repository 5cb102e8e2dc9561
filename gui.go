//go:build gui

package main

import (
	"context"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/purr/internal/playback"
	"github.com/metcalfc/purr/internal/reader"
	"github.com/metcalfc/purr/internal/speech"
)

// window is the desktop front end. All fields are touched only on the
// fyne main goroutine; other goroutines go through fyne.Do.
type window struct {
	app *app
	ctx context.Context
	win fyne.Window

	doc     *reader.Document
	snap    playback.Snapshot
	lastErr error
	voices  []speech.Voice
	syncing bool // set while widgets are updated from state

	status   *widget.Label
	progress *widget.ProgressBar
	loading  *widget.ProgressBarInfinite
	play     *widget.Button
	chunks   *widget.List
	sections *widget.List
	toc      *fyne.Container
	voice    *widget.Select
	rate     *widget.Slider
	pitch    *widget.Slider
	editor   *widget.Entry
}

func runReader(ctx context.Context, a *app, in input) error {
	a.start(ctx)

	fa := fyneapp.New()
	w := &window{
		app: a,
		ctx: ctx,
		win: fa.NewWindow("purr"),
		doc: a.session.Document(),
	}
	w.build()

	a.session.Controller().OnChange(func(playback.Snapshot) {
		fyne.Do(w.refresh)
	})
	a.catalog.Subscribe(func(v []speech.Voice) {
		fyne.Do(func() { w.setVoices(v) })
	})

	if in.text != "" {
		a.session.SetText(in.text, "stdin")
		w.editor.SetText(in.text)
	}
	w.refresh()
	if in.path != "" {
		w.load(in.path)
	}

	go func() {
		<-ctx.Done()
		fyne.Do(fa.Quit)
	}()

	w.win.Resize(fyne.NewSize(900, 650))
	w.win.ShowAndRun()
	return nil
}

func (w *window) build() {
	sess := w.app.session
	ctrl := sess.Controller()

	w.status = widget.NewLabel("")
	w.status.Truncation = fyne.TextTruncateEllipsis
	w.progress = widget.NewProgressBar()
	w.progress.TextFormatter = func() string {
		return progressText(w.doc, w.snap)
	}
	w.loading = widget.NewProgressBarInfinite()
	w.loading.Hide()

	w.play = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), w.togglePlay)
	transport := container.NewHBox(
		widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), func() { ctrl.Skip(playback.Previous) }),
		w.play,
		widget.NewButtonWithIcon("", theme.MediaStopIcon(), ctrl.Stop),
		widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), func() { ctrl.Skip(playback.Next) }),
	)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), w.openDialog),
		widget.NewToolbarAction(theme.HistoryIcon(), w.resumeBookmark),
		widget.NewToolbarAction(theme.ListIcon(), w.toggleSections),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewFullScreenIcon(), func() {
			w.win.SetFullScreen(!w.win.FullScreen())
		}),
	)

	w.voice = widget.NewSelect(nil, func(label string) {
		if w.syncing {
			return
		}
		for _, v := range w.voices {
			if v.String() == label {
				sess.SetVoice(v.ID)
				return
			}
		}
	})
	w.voice.PlaceHolder = "Default voice"

	w.rate = widget.NewSlider(playback.MinRate, playback.MaxRate)
	w.rate.Step = 0.1
	w.rate.OnChangeEnded = func(v float64) { sess.SetRate(v) }

	w.pitch = widget.NewSlider(playback.MinPitch, playback.MaxPitch)
	w.pitch.Step = 0.1
	w.pitch.OnChangeEnded = func(v float64) { sess.SetPitch(v) }

	settings := container.NewGridWithColumns(3,
		w.voice,
		container.NewBorder(nil, nil, widget.NewLabel("Rate"), nil, w.rate),
		container.NewBorder(nil, nil, widget.NewLabel("Pitch"), nil, w.pitch),
	)

	w.chunks = widget.NewList(
		func() int { return len(w.doc.Chunks) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("chunk")
			l.Truncation = fyne.TextTruncateEllipsis
			return l
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			l := obj.(*widget.Label)
			l.SetText(fmt.Sprintf("%d. %s", id+1, strings.Join(strings.Fields(w.doc.Chunks[id]), " ")))
			current := id == w.snap.Position && w.snap.Status != playback.Stopped
			l.TextStyle.Bold = current
			if current {
				l.Importance = widget.HighImportance
			} else {
				l.Importance = widget.MediumImportance
			}
			l.Refresh()
		},
	)
	w.chunks.OnSelected = func(id widget.ListItemID) {
		w.chunks.Unselect(id)
		if err := ctrl.JumpTo(id); err != nil {
			dialog.ShowError(err, w.win)
		}
	}

	w.sections = widget.NewList(
		func() int { return len(w.doc.Sections) },
		func() fyne.CanvasObject {
			return container.NewVBox(widget.NewLabel("Title"), widget.NewLabel("Preview"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			s := w.doc.Sections[id]
			vbox := obj.(*fyne.Container)
			title := vbox.Objects[0].(*widget.Label)
			preview := vbox.Objects[1].(*widget.Label)

			indent := strings.Repeat("  ", s.Level)
			title.SetText(indent + s.Title)
			title.TextStyle.Bold = true
			title.Refresh()
			preview.SetText(indent + s.Preview)
		},
	)
	w.sections.OnSelected = func(id widget.ListItemID) {
		w.sections.Unselect(id)
		if err := sess.JumpToSection(id); err != nil {
			dialog.ShowError(err, w.win)
		}
	}
	w.toc = container.NewBorder(widget.NewLabel("Sections"), nil, nil, nil, w.sections)
	w.toc.Hide()

	w.editor = widget.NewMultiLineEntry()
	w.editor.Wrapping = fyne.TextWrapWord
	w.editor.SetPlaceHolder("Type or paste text here, then press Read.")
	read := widget.NewButtonWithIcon("Read", theme.DocumentIcon(), func() {
		sess.SetText(w.editor.Text, "editor")
	})
	editor := container.NewBorder(nil, container.NewHBox(read), nil, nil, w.editor)

	reading := container.NewVSplit(w.chunks, editor)
	reading.Offset = 0.65

	header := container.NewVBox(
		container.NewBorder(nil, nil, transport, toolbar, settings),
		w.status,
	)
	footer := container.NewVBox(w.loading, w.progress)
	body := container.NewBorder(nil, nil, w.toc, nil, reading)

	w.win.SetContent(container.NewBorder(header, footer, nil, nil, body))

	w.win.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		switch k.Name {
		case fyne.KeySpace:
			w.togglePlay()
		case fyne.KeyLeft:
			ctrl.Skip(playback.Previous)
		case fyne.KeyRight:
			ctrl.Skip(playback.Next)
		case fyne.KeyEscape:
			ctrl.Stop()
		}
	})
}

// refresh brings every widget in line with the session.
func (w *window) refresh() {
	sess := w.app.session
	doc := sess.Document()
	changed := doc != w.doc
	w.doc = doc
	w.snap = sess.Controller().Snapshot()

	w.syncing = true
	defer func() { w.syncing = false }()

	w.status.SetText(fmt.Sprintf("%s | %s | %s", progressText(w.doc, w.snap), w.snap.Status, settingsText(w.snap)))
	if title := w.doc.SectionTitle(w.snap.Position); title != "" {
		w.status.SetText(w.status.Text + " | " + title)
	}

	if w.snap.Status == playback.Playing {
		w.play.SetIcon(theme.MediaPauseIcon())
	} else {
		w.play.SetIcon(theme.MediaPlayIcon())
	}

	if w.snap.Total > 0 {
		w.progress.SetValue(float64(w.snap.Position+1) / float64(w.snap.Total))
	} else {
		w.progress.SetValue(0)
	}

	w.rate.SetValue(w.snap.Rate)
	w.pitch.SetValue(w.snap.Pitch)
	w.selectVoice()

	w.chunks.Refresh()
	if changed {
		w.sections.Refresh()
		if len(w.doc.Sections) == 0 {
			w.toc.Hide()
		}
	}
	if !w.doc.Empty() && (changed || w.snap.Status == playback.Playing) {
		w.chunks.ScrollTo(w.snap.Position)
	}

	if w.snap.Err != nil && w.snap.Err != w.lastErr {
		dialog.ShowError(w.snap.Err, w.win)
	}
	w.lastErr = w.snap.Err
}

func (w *window) setVoices(voices []speech.Voice) {
	w.voices = voices
	w.app.checkVoice(voices)

	labels := make([]string, len(voices))
	for i, v := range voices {
		labels[i] = v.String()
	}
	w.syncing = true
	w.voice.SetOptions(labels)
	w.syncing = false
	w.refresh()
}

func (w *window) selectVoice() {
	if v, ok := w.app.catalog.Lookup(w.snap.Voice); ok {
		w.voice.SetSelected(v.String())
		return
	}
	w.voice.ClearSelected()
}

func (w *window) togglePlay() {
	ctrl := w.app.session.Controller()
	if ctrl.Snapshot().Status == playback.Playing {
		ctrl.Pause()
	} else {
		ctrl.Play()
	}
}

func (w *window) toggleSections() {
	if w.toc.Visible() || len(w.doc.Sections) == 0 {
		w.toc.Hide()
		return
	}
	w.toc.Show()
}

func (w *window) resumeBookmark() {
	if _, err := w.app.session.ResumeBookmark(); err != nil {
		dialog.ShowInformation("Bookmark", err.Error(), w.win)
	}
}

func (w *window) openDialog() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w.win)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()
		w.load(path)
	}, w.win)

	var exts []string
	for _, f := range reader.Formats() {
		exts = append(exts, f.Extensions()...)
	}
	d.SetFilter(storage.NewExtensionFileFilter(exts))
	d.Show()
}

// load extracts path in the background. The current document stays
// readable until extraction succeeds.
func (w *window) load(path string) {
	w.loading.Show()
	w.loading.Start()
	sess := w.app.session

	go func() {
		doc, err := sess.LoadFile(w.ctx, path, func(done, total int) {
			fyne.Do(func() {
				w.status.SetText(fmt.Sprintf("Loading: page %d of %d", done, total))
			})
		})

		fyne.Do(func() {
			w.loading.Stop()
			w.loading.Hide()
			if err != nil {
				dialog.ShowError(err, w.win)
				w.refresh()
				return
			}
			w.editor.SetText(doc.Text)
			w.refresh()

			b, ok := sess.Bookmark()
			if !ok {
				return
			}
			msg := fmt.Sprintf("Continue reading at chunk %d of %d?", b.Chunk+1, len(doc.Chunks))
			dialog.ShowConfirm("Resume", msg, func(resume bool) {
				if resume {
					w.resumeBookmark()
				}
			}, w.win)
		})
	}()
}
