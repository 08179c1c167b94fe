package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"depthcam/catalog"
	"depthcam/config"
	"depthcam/notify"
	"depthcam/serve"
	"depthcam/util"
	"depthcam/video"
	"depthcam/video/display"
	"depthcam/video/sink"
	"depthcam/video/source"
)

const version = "0.3.0"

var (
	subjectName     = flag.String("subject-name", "", "subject name of the recording (prompted if empty)")
	sessionName     = flag.String("session-name", "", "session name of the recording (prompted if empty)")
	recordingLength = flag.Float64P("recording-length", "t", 30, "recording time (minutes)")
	saveIR          = flag.Bool("save-ir", true, "save infrared stream")
	preview         = flag.Bool("preview", true, "show frame preview during recording")
	displayTime     = flag.Bool("display-time", true, "show time during the recording")
	heightThreshold = flag.Int("depth-height-threshold", 150, "max height value for visualization only")
	frameRate       = flag.IntP("frame-rate", "r", 30, "frame rate of the recording")

	device     = flag.String("device", "synthetic", "camera driver, one of "+strings.Join(source.Devices(), ", "))
	configPath = flag.String("config", "", "JSON configuration file")
	port       = flag.Int("port", 0, "port to host /metrics and /status; 0 disables")
	catalogDSN = flag.String("catalog-dsn", "", "MySQL DSN to catalog finished sessions")
	verbose    = flag.BoolP("verbose", "v", false, "debug logging")
	showVer    = flag.Bool("version", false, "print the version and exit")
)

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Start recording depth and IR video.\n\nUsage:\n\t%s [flags] [base-dir]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVer {
		fmt.Println("depthcam", version)
		return
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}
	if flag.NArg() == 1 {
		baseDir = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if flag.CommandLine.Changed("port") {
		cfg.MetricsPort = *port
	}
	if flag.CommandLine.Changed("catalog-dsn") {
		cfg.CatalogDSN = *catalogDSN
	}

	ffmpegp := cfg.FFmpegPath
	if ffmpegp == "" {
		ffmpegp, err = util.LocateFFmpeg()
		if err != nil {
			fmt.Println("Unable to locate ffmpeg binary", err)
			fmt.Println("FFmpeg is required for saving video files.")
			fmt.Println("Either ensure the ffmpeg binary is in $PATH,")
			fmt.Println("or set the FFMPEG environment variable.")
			os.Exit(1)
		}
	}
	log.Infof("Located ffmpeg binary, %v", ffmpegp)

	fs, err := video.NewFilesystem(baseDir)
	if err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	stdin := bufio.NewReader(os.Stdin)
	if *subjectName == "" {
		*subjectName = prompt(stdin, "Input subject name: ")
	}
	if *sessionName == "" {
		*sessionName = prompt(stdin, "Input session name: ")
	}

	dev, err := source.NewDevice(*device, source.DeviceOptions{FPS: *frameRate})
	if err != nil {
		log.Fatalf("Failed to open camera: %v", err)
	}

	if err := record(fs, dev, ffmpegp, cfg); err != nil {
		log.Errorf("Recording failed: %v", err)
		os.Exit(1)
	}
}

func record(fs *video.Filesystem, dev source.Device, ffmpegp string, cfg *config.Config) error {
	notifier := &notify.Notifier{}
	var cat serve.SessionCatalog
	if cfg.CatalogDSN != "" {
		c, err := catalog.Open(cfg.CatalogDSN)
		if err != nil {
			return err
		}
		notifier.Add(c)
		cat = c
	}
	if cfg.MetricsPort != 0 {
		status := serve.NewStatusUpdater()
		notifier.Add(status)
		srv := serve.ListenAndServe(cfg.MetricsPort, serve.NewHandler(fs, status, cat))
		defer srv.Close()
	}

	params := video.Params{
		SubjectName:          *subjectName,
		SessionName:          *sessionName,
		Duration:             time.Duration(*recordingLength * float64(time.Minute)),
		FrameRate:            *frameRate,
		SaveIR:               *saveIR,
		Preview:              *preview,
		DisplayTime:          *displayTime,
		DepthHeightThreshold: *heightThreshold,
	}
	rec := video.NewRecorder(params, video.RecorderOptions{
		Filesystem: fs,
		Device:     dev,
		Open: sink.FFmpegOpener(sink.FFmpegOptions{
			Binary:  ffmpegp,
			FPS:     *frameRate,
			Threads: cfg.EncoderThreads,
			Slices:  cfg.EncoderSlices,
		}),
		NewDisplay: func(s *video.Session) sink.Display {
			return display.NewWindow(display.WindowOptions{
				Name:     "ir",
				ShowTime: s.DisplayTime,
				Start:    s.Start,
				Duration: s.Duration,
			})
		},
		ReadTimeout:   time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
		QueueDepth:    cfg.EncoderQueueDepth,
		PrintInterval: cfg.PrintInterval,
		Notifier:      notifier,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := rec.Run(ctx)
	if err != nil {
		return err
	}
	if sum.StoppedEarly {
		log.Warnf("Recording stopped early after %d frames", sum.Frames)
	}
	log.Infof("Saved %d frames to %v", sum.Frames, sum.Session.Paths.Dir)
	return nil
}
