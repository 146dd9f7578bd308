// Package config loads the kernel's boot-time configuration from a TOML
// file via github.com/BurntSushi/toml, the way SPEC_FULL.md §5 specifies:
// core count, tick period, stack size/alignment, heap size, log level, SGI
// number, and the MMIO base overrides spec.md §6 lists.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/sched"
	"rpi4kernel/internal/thread"
)

// MMIO holds the board's physical MMIO base addresses, overridable for
// testing on non-RPi4 hosts without touching bsp's compiled-in constants.
type MMIO struct {
	MailboxPhysBase uint64 `toml:"mailbox_phys_base"`
	GPIOPhysBase    uint64 `toml:"gpio_phys_base"`
	UARTPhysBase    uint64 `toml:"uart_phys_base"`
	GICDPhysBase    uint64 `toml:"gicd_phys_base"`
	GICCPhysBase    uint64 `toml:"gicc_phys_base"`
}

// Config is the kernel's complete boot-time configuration. CoreCount,
// StackSize and StackAlign exist to be validated, not tuned: spec.md §2/§4.6
// fixes the kernel at four hardware threads and every thread's stack at
// 8 KiB/4 KiB-aligned, so Validate rejects a config that disagrees with
// those constants rather than silently overriding them.
type Config struct {
	CoreCount  int    `toml:"core_count"`
	TickPeriod string `toml:"tick_period"`
	StackSize  uint64 `toml:"stack_size"`
	StackAlign uint64 `toml:"stack_align"`
	HeapSize   uint64 `toml:"heap_size"`
	LogLevel   string `toml:"log_level"`
	SGINumber  int    `toml:"sgi_number"`
	MMIO       MMIO   `toml:"mmio"`
}

// Default returns the configuration the kernel boots with when no config
// file is supplied, matching bsp's and thread's compiled-in constants.
func Default() Config {
	return Config{
		CoreCount:  sched.NumCores,
		TickPeriod: "10ms",
		StackSize:  uint64(thread.StackSize),
		StackAlign: uint64(thread.StackAlign),
		HeapSize:   1 << 20,
		LogLevel:   "info",
		SGINumber:  bsp.IRQNumberSGI9,
		MMIO: MMIO{
			MailboxPhysBase: bsp.MailboxPhysBase,
			GPIOPhysBase:    bsp.GPIOPhysBase,
			UARTPhysBase:    bsp.UARTPhysBase,
			GICDPhysBase:    bsp.GICDPhysBase,
			GICCPhysBase:    bsp.GICCPhysBase,
		},
	}
}

// TickPeriodDuration parses TickPeriod. Callers that have already run
// Validate know this cannot fail.
func (c Config) TickPeriodDuration() (time.Duration, error) {
	return time.ParseDuration(c.TickPeriod)
}

// Validate rejects a config that disagrees with the values spec.md fixes:
// four hardware threads (sched.NumCores) and an 8 KiB/4 KiB-aligned thread
// stack (thread.StackSize/StackAlign). These are not board-tunable
// parameters like HeapSize or the MMIO bases; a mismatch here is a
// boot-time fatal error, per SPEC_FULL.md §5.
func (c Config) Validate() error {
	if c.CoreCount != sched.NumCores {
		return fmt.Errorf("config: core_count %d disagrees with the fixed core count %d", c.CoreCount, sched.NumCores)
	}
	if c.StackSize != uint64(thread.StackSize) {
		return fmt.Errorf("config: stack_size %d disagrees with the fixed stack size %d", c.StackSize, thread.StackSize)
	}
	if c.StackAlign != uint64(thread.StackAlign) {
		return fmt.Errorf("config: stack_align %d disagrees with the fixed stack alignment %d", c.StackAlign, thread.StackAlign)
	}
	if _, err := c.TickPeriodDuration(); err != nil {
		return fmt.Errorf("config: invalid tick_period %q: %w", c.TickPeriod, err)
	}
	return nil
}

// Load reads and decodes a TOML config file at path, starting from
// Default() so an omitted field keeps its default rather than zeroing out,
// then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
