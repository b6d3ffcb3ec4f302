// Package process supervises a long-running child process.
//
// It is used for external audio capture tools (arecord, ffmpeg, parec)
// whose standard output is a raw PCM stream.
//
// Features:
//   - Start/stop with graceful SIGTERM then SIGKILL of the process group
//   - Automatic restart on failure with a fixed delay and attempt cap
//   - Standard output handed to a consumer; standard error is logged
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:             "arecord",
//	    Binary:           "/usr/bin/arecord",
//	    Args:             []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "44100"},
//	    RestartOnFailure: true,
//	    Stdout:           consume,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
