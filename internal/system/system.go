package system

import (
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/images2video/internal/logging"
)

// InitResourceLimits raises the open-file limit. A run holds decoder
// and encoder handles for every image plus each export target.
func InitResourceLimits() {
	log := logging.WithComponent("system")

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("could not read open-file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("could not raise open-file limit")
	} else {
		log.Debug().Uint64("limit", rLimit.Cur).Msg("open-file limit raised")
	}
}

// lowMemoryBytes is the threshold below which worker count is halved:
// every in-flight frame is a full canvas of RGBA.
const lowMemoryBytes = 2 << 30

// DefaultWorkers sizes the export worker pool from the machine's
// logical CPU count, backing off when available memory is tight.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Available < lowMemoryBytes && n > 2 {
		n /= 2
	}

	if n < 1 {
		n = 1
	}
	return n
}

// BestH264Encoder probes ffmpeg for hardware H.264 encoders, falling
// back to software x264.
func BestH264Encoder() string {
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range candidates {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality is the encoder-appropriate quality setting: CRF for
// x264, a CRF-equivalent for NVENC, a bitrate multiplier for
// VideoToolbox.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}
