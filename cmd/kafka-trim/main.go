package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/conf"
	"github.com/segmentio/events/v2"
	_ "github.com/segmentio/events/v2/ecslogs"
	_ "github.com/segmentio/events/v2/log"
	_ "github.com/segmentio/events/v2/sigevents"
	_ "github.com/segmentio/events/v2/text"

	trim "github.com/segmentio/kafka-trim"
	"github.com/segmentio/kafka-trim/compress"
	"github.com/segmentio/kafka-trim/planfile"
	"github.com/segmentio/kafka-trim/protocol"
)

var version = ""

func main() {
	var err error
	var ld = conf.Loader{
		Name: "kafka-trim",
		Args: os.Args[1:],
		Commands: []conf.Command{
			{Name: "plan", Help: "Write a plan file from a YAML offsets document"},
			{Name: "show", Help: "Print the content of a plan file"},
			{Name: "apply", Help: "Send the DeleteRecords request of a plan file to a broker"},
			{Name: "help", Help: "Show the kafka-trim help"},
			{Name: "version", Help: "Show the kafka-trim version"},
		},
	}

	switch cmd, args := conf.LoadWith(nil, ld); cmd {
	case "plan":
		err = plan(args)
	case "show":
		err = show(args)
	case "apply":
		err = apply(args)
	case "help":
		ld.PrintHelp(nil)
	case "version":
		fmt.Println(version)
	default:
		panic("unreachable")
	}

	if err != nil {
		events.Log("%{error}s", err)
		os.Exit(1)
	}
}

func plan(args []string) error {
	config := struct {
		Debug       bool          `conf:"debug"       help:"Enable debug logs"`
		Offsets     string        `conf:"offsets"     help:"Path to the YAML offsets document, - for stdin"`
		Out         string        `conf:"out"         help:"Path of the plan file to write, - for stdout"`
		Compression string        `conf:"compression" help:"Compression of the plan body: none, gzip, snappy, lz4 or zstd"`
		APIVersion  int           `conf:"api-version" help:"DeleteRecords api version of the plan"`
		Timeout     time.Duration `conf:"timeout"     help:"Overrides the timeout of the offsets document when not zero"`
	}{
		Offsets:     "-",
		Out:         "plan.ktrm",
		Compression: "none",
	}

	conf.LoadWith(&config, conf.Loader{
		Name: "kafka-trim plan",
		Args: args,
	})
	setDebug(config.Debug)

	var codec compress.Compression
	if err := codec.UnmarshalText([]byte(config.Compression)); err != nil {
		return err
	}

	in, closeIn, err := openInput(config.Offsets)
	if err != nil {
		return err
	}
	defer closeIn()

	builder, err := trim.ParseOffsets(in)
	if err != nil {
		return errors.Wrapf(err, "reading %s", config.Offsets)
	}
	if config.Timeout != 0 {
		builder = trim.NewDeleteRecordsBuilder(config.Timeout, builder.Build(0).Offsets())
	}

	req := builder.Build(int16(config.APIVersion))
	events.Debug("planning %{request}s", req)

	if err := writePlan(config.Out, req, codec); err != nil {
		return err
	}

	events.Log("planned deletion of records in %{count}d partitions to %{path}s", req.Len(), config.Out)
	return nil
}

// writePlan checks that req can be encoded before creating the file at path,
// a rejected request leaves no output behind.
func writePlan(path string, req *trim.DeleteRecordsRequest, codec compress.Compression) error {
	if err := protocol.DeleteRecords.CheckVersion(req.Version()); err != nil {
		return errors.Wrapf(err, "api-version must be one of %v", protocol.DeleteRecords.Versions())
	}
	if _, err := req.MarshalBinary(); err != nil {
		return errors.Wrap(err, "encoding plan")
	}

	out, closeOut, err := createOutput(path)
	if err != nil {
		return err
	}

	if err := planfile.Write(out, req, codec); err != nil {
		closeOut()
		return errors.Wrapf(err, "writing plan to %s", path)
	}
	if err := closeOut(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}
	return nil
}

func show(args []string) error {
	config := struct{}{}

	_, files := conf.LoadWith(&config, conf.Loader{
		Name: "kafka-trim show",
		Args: args,
	})

	if len(files) == 0 {
		files = []string{"-"}
	}

	for _, path := range files {
		req, h, err := readPlan(path)
		if err != nil {
			return err
		}

		fmt.Printf("plan: %s\n", path)
		fmt.Printf("format: %d\n", h.Format)
		fmt.Printf("compression: %s\n", h.Compression)
		fmt.Printf("api version: %d\n", h.Version)
		fmt.Printf("timeout: %s\n", req.Timeout())

		for _, tp := range req.Partitions() {
			offset, _ := req.Offset(tp)
			if offset == trim.HighWatermark {
				fmt.Printf("\t%s\thigh-watermark\n", tp)
			} else {
				fmt.Printf("\t%s\t%d\n", tp, offset)
			}
		}

		fmt.Println("")
	}

	return nil
}

func apply(args []string) (err error) {
	config := struct {
		Debug    bool          `conf:"debug"     help:"Enable debug logs"`
		Broker   string        `conf:"broker"    help:"Address of the broker leading the partitions of the plan"`
		ClientID string        `conf:"client-id" help:"Client id sent to the broker"`
		Timeout  time.Duration `conf:"timeout"   help:"Upper bound on the duration of the request"`
		DryRun   bool          `conf:"dry-run"   help:"Print the request without sending it"`
		TLS      tlsConfig     `conf:"tls"`
		SASL     saslConfig    `conf:"sasl"`
	}{
		Broker:   "localhost:9092",
		ClientID: "kafka-trim-" + uuid.NewString(),
		Timeout:  time.Minute,
		SASL: saslConfig{
			ServiceName: "kafka",
			Krb5Config:  "/etc/krb5.conf",
		},
	}

	_, files := conf.LoadWith(&config, conf.Loader{
		Name: "kafka-trim apply",
		Args: args,
	})
	setDebug(config.Debug)

	defer func() {
		if v := recover(); v != nil {
			err = convertPanicToError(v)
		}
	}()

	if len(files) != 1 {
		return errors.New("apply expects exactly one plan file")
	}

	req, _, err := readPlan(files[0])
	if err != nil {
		return err
	}

	if config.DryRun {
		fmt.Println(req)
		return nil
	}

	addr, err := net.ResolveTCPAddr("tcp", config.Broker)
	if err != nil {
		return errors.Wrap(err, "failed to resolve broker address")
	}

	mechanism, err := config.SASL.mechanism()
	if err != nil {
		return err
	}

	tlsConfig, err := config.TLS.config()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigrecv, stop := signals(syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-sigrecv:
			cancel()
		case <-ctx.Done():
		}
	}()

	client := &trim.Client{
		Addr:        addr,
		ClientID:    config.ClientID,
		Timeout:     config.Timeout,
		TLS:         tlsConfig,
		SASL:        mechanism,
		Logger:      trim.LoggerFunc(events.Debug),
		ErrorLogger: trim.LoggerFunc(events.Log),
	}

	res, err := client.DeleteRecords(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "deleting records on %s", config.Broker)
	}

	failed := 0
	for _, tp := range res.Partitions() {
		r, _ := res.Result(tp)
		if err := r.Err(); err != nil {
			failed++
			fmt.Printf("%s\terror\t%s\n", tp, err)
		} else {
			fmt.Printf("%s\tlow-watermark\t%d\n", tp, r.LowWatermark)
		}
	}

	if failed != 0 {
		return fmt.Errorf("%d of %d partitions could not be trimmed", failed, res.Len())
	}
	return nil
}

func readPlan(path string) (*trim.DeleteRecordsRequest, planfile.Header, error) {
	in, closeIn, err := openInput(path)
	if err != nil {
		return nil, planfile.Header{}, err
	}
	defer closeIn()

	req, h, err := planfile.Read(in)
	if err != nil {
		return nil, h, errors.Wrapf(err, "reading plan %s", path)
	}
	return req, h, nil
}

func openInput(path string) (*os.File, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open input")
	}
	return f, f.Close, nil
}

func createOutput(path string) (*os.File, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create output")
	}
	return f, f.Close, nil
}

func setDebug(debug bool) {
	events.DefaultLogger.EnableDebug = debug
	events.DefaultLogger.EnableSource = debug
}

func signals(signals ...os.Signal) (<-chan os.Signal, func()) {
	sigchan := make(chan os.Signal, 1)
	sigrecv := events.Signal(sigchan)
	signal.Notify(sigchan, signals...)
	return sigrecv, func() { signal.Stop(sigchan) }
}

func convertPanicToError(v interface{}) error {
	switch x := v.(type) {
	case error:
		return x
	case string:
		return errors.New(x)
	default:
		return fmt.Errorf("%v", x)
	}
}
