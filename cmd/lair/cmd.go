package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"syscall"
	"time"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
	flags "github.com/jessevdk/go-flags"

	"github.com/lairchat/lair"
	"github.com/lairchat/lair/chat"
	"github.com/lairchat/lair/sshd"

	_ "net/http/pprof"
)

// Version of the binary, assigned during build.
var Version string = "dev"

// Options contains the flag options
type Options struct {
	Verbose      []bool        `short:"v" long:"verbose" description:"Show verbose logging."`
	Version      bool          `long:"version" description:"Print version and exit."`
	Bind         string        `long:"bind" description:"Host and port to listen on for plain TCP clients." default:"0.0.0.0:8888"`
	SSHBind      string        `long:"ssh-bind" description:"Host and port to also listen on for SSH clients."`
	Identity     string        `short:"i" long:"identity" description:"Private key to identify the SSH listener with." default:"~/.ssh/id_rsa"`
	MaxName      int           `long:"max-name" description:"Maximum nickname length." default:"8"`
	MaxLine      int           `long:"max-line" description:"Maximum length of one line of input, in bytes." default:"4096"`
	WriteTimeout time.Duration `long:"write-timeout" description:"Disconnect clients that block a write for longer than this." default:"10s"`
	Echo         bool          `long:"echo" description:"Deliver room messages back to their sender."`
	Room         string        `long:"room" description:"Room every client joins after choosing a name."`
	Motd         string        `long:"motd" description:"Optional Message of the Day file."`
	MaxSessions  int           `long:"max-sessions" description:"Maximum concurrent connections, 0 for unlimited."`
	Log          string        `long:"log" description:"Write session events to this file, - for stdout."`
	Pprof        int           `long:"pprof" description:"Enable pprof http server for profiling."`
}

var logLevels = []log.Level{
	log.Warning,
	log.Info,
	log.Debug,
}

func fail(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	p, err := parser.Parse()
	if err != nil {
		if p == nil {
			fmt.Print(err)
		}
		return
	}

	if options.Pprof != 0 {
		go func() {
			fmt.Println(http.ListenAndServe(fmt.Sprintf("localhost:%d", options.Pprof), nil))
		}()
	}

	if options.Version {
		fmt.Println(Version)
		return
	}

	// Figure out the log level
	numVerbose := len(options.Verbose)
	if numVerbose >= len(logLevels) {
		numVerbose = len(logLevels) - 1
	}

	logLevel := logLevels[numVerbose]
	logger := golog.New(os.Stderr, logLevel)
	lair.SetLogger(logger)

	if logLevel == log.Debug {
		// Enable logging from submodules
		chat.SetLogger(os.Stderr)
		sshd.SetLogger(os.Stderr)
	}

	cfg := lair.DefaultConfig()
	cfg.Bind = options.Bind
	cfg.MaxNameLength = options.MaxName
	cfg.MaxFrameLength = options.MaxLine
	cfg.WriteTimeout = options.WriteTimeout
	cfg.EchoToSender = options.Echo
	cfg.DefaultRoom = options.Room
	cfg.MaxSessions = options.MaxSessions
	cfg.InputLimit = sshd.NewInputLimiter

	if options.Motd != "" {
		motd, err := os.ReadFile(options.Motd)
		if err != nil {
			fail(7, "Failed to load MOTD file: %v\n", err)
		}
		cfg.Motd = strings.TrimRight(strings.ReplaceAll(string(motd), "\r\n", "\n"), "\n")
	}

	server, err := lair.NewServer(cfg)
	if err != nil {
		fail(1, "Invalid configuration: %v\n", err)
	}

	if options.Log == "-" {
		server.Subscribe(newEventLog(os.Stdout, logLevel == log.Debug).Observe)
	} else if options.Log != "" {
		fp, err := os.OpenFile(options.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fail(8, "Failed to open log file for writing: %v", err)
		}
		defer fp.Close()
		server.Subscribe(newEventLog(fp, logLevel == log.Debug).Observe)
	}

	if err := server.Start(); err != nil {
		fail(4, "Failed to listen on socket: %v\n", err)
	}
	fmt.Printf("Listening for connections on %v\n", server.Addr())

	if options.SSHBind != "" {
		privateKeyPath := options.Identity
		if strings.HasPrefix(privateKeyPath, "~/") {
			user, err := user.Current()
			if err == nil {
				privateKeyPath = strings.Replace(privateKeyPath, "~", user.HomeDir, 1)
			}
		}

		signer, err := ReadPrivateKey(privateKeyPath)
		if err != nil {
			fail(2, "Couldn't read private key: %v\n", err)
		}

		config := sshd.MakeNoAuth()
		config.AddHostKey(signer)
		config.ServerVersion = "SSH-2.0-Go lair"

		l, err := sshd.ListenSSH(options.SSHBind, config)
		if err != nil {
			fail(4, "Failed to listen on socket: %v\n", err)
		}
		l.RateLimit = sshd.NewInputLimiter
		fmt.Printf("Listening for SSH connections on %v\n", l.Addr())

		go server.Serve(l)
	}

	// Construct interrupt handler
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	<-sig // Wait for ^C signal
	fmt.Fprintln(os.Stderr, "Interrupt signal detected, shutting down.")
	if err := server.Stop(); err != nil {
		logger.Warningf("Shutdown: %s", err)
	}
}
