package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const baseConfig = `
Hardware:
  GPIOLibrary: "rpio"
  ResetPin: 21
  SPIDevice: "/dev/spidev0.1"
  SPIFrequency: 1000000
  SPIMode: 0
Timing:
  ResetAssert: 120ms
  ResetRelease: 110ms
  PostWriteSettle: 60ms
  PreCommandSettle: 150ms
Registers:
  OperandA: 0
  OperandB: 1
  Command: 2
  Result: 3
Simulator:
  Design: "gcd"
Logging:
  Level: "DEBUG"
  Format: "json"
  File: "/tmp/fpgaspi.log"
`

func createConfigFile(t *testing.T, configData string) string {
	configFile := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configFile, []byte(configData), 0o644); err != nil {
		t.Fatalf("Failed to write dummy config file: %v", err)
	}
	return configFile
}

func TestReadConfig(t *testing.T) {
	conf, err := ReadConfig(createConfigFile(t, baseConfig))
	assert.NoError(t, err, "ReadConfig should not return an error")

	assert.Equal(t, LibraryRpio, conf.Hardware.GPIOLibrary)
	assert.Equal(t, 21, conf.Hardware.ResetPin)
	assert.Equal(t, 1000000, conf.Hardware.SPIFrequency)
	assert.Equal(t, 120*time.Millisecond, conf.Timing.ResetAssert)
	assert.Equal(t, 150*time.Millisecond, conf.Timing.PreCommandSettle)
	assert.Equal(t, 60*time.Millisecond, conf.Timing.Bus().PostWriteSettle)
	assert.Equal(t, 3, conf.Registers.Result)
	assert.Equal(t, "gcd", conf.Simulator.Design)
	assert.Equal(t, "DEBUG", conf.Logging.Level)
	assert.Equal(t, "/tmp/fpgaspi.log", conf.Logging.File)
}

func TestReadConfig_DefaultsForMissingSections(t *testing.T) {
	conf, err := ReadConfig(createConfigFile(t, "Logging:\n  Level: \"WARN\"\n"))
	assert.NoError(t, err)
	assert.Equal(t, Default().Hardware, conf.Hardware)
	assert.Equal(t, Default().Timing, conf.Timing)
	assert.Equal(t, "WARN", conf.Logging.Level)
	assert.Equal(t, "text", conf.Logging.Format)
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "can't open config file")
}

func TestReadConfig_UnknownField(t *testing.T) {
	_, err := ReadConfig(createConfigFile(t, baseConfig+"Bogus: 1\n"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "can't decode config file")
}

func TestReadConfig_InvalidLibrary(t *testing.T) {
	configData := strings.Replace(baseConfig, `"rpio"`, `"wiringpi"`, 1)
	_, err := ReadConfig(createConfigFile(t, configData))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Hardware.GPIOLibrary")
}

func TestReadConfig_NegativeTiming(t *testing.T) {
	configData := strings.Replace(baseConfig, "PostWriteSettle: 60ms", "PostWriteSettle: -1ms", 1)
	_, err := ReadConfig(createConfigFile(t, configData))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Timing.PostWriteSettle must not be negative")
}

func TestReadConfig_RegisterOutOfRange(t *testing.T) {
	configData := strings.Replace(baseConfig, "Result: 3", "Result: 200", 1)
	_, err := ReadConfig(createConfigFile(t, configData))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Registers.Result must be between 0 and 127")
}

func TestReadConfig_NegativeRegister(t *testing.T) {
	configData := strings.Replace(baseConfig, "Command: 2", "Command: -1", 1)
	_, err := ReadConfig(createConfigFile(t, configData))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Registers.Command must be between 0 and 127")
}

func TestReadConfig_DuplicateRegisters(t *testing.T) {
	configData := strings.Replace(baseConfig, "OperandB: 1", "OperandB: 0", 1)
	_, err := ReadConfig(createConfigFile(t, configData))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be distinct")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	conf := Default()
	conf.Hardware.SPIMode = 7
	conf.Simulator.Design = "dsp"
	conf.Logging.Format = "xml"
	err := conf.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Hardware.SPIMode")
	assert.Contains(t, err.Error(), "Simulator.Design")
	assert.Contains(t, err.Error(), "Logging.Format")
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
