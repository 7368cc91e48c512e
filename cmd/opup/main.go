package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/librescoot/opup-flasher/pkg/avr"
	"github.com/librescoot/opup-flasher/pkg/bench"
	"github.com/librescoot/opup-flasher/pkg/flash"
	"github.com/librescoot/opup-flasher/pkg/hexdump"
	"github.com/librescoot/opup-flasher/pkg/opup"
	"github.com/librescoot/opup-flasher/pkg/transport"
)

// Configuration flags
var (
	port    = flag.String("p", "/dev/ttyACM0", "Serial port device path")
	baud    = flag.Int("b", 115200, "Serial baud rate")
	timeout = flag.Float64("t", 2.0, "Read timeout, in seconds")
	verbose = flag.Bool("v", false, "Verbose: trace every TX/RX frame")

	redisAddr = flag.String("redis-addr", "", "Optional Redis address to publish transaction events to")
	redisPass = flag.String("redis-pass", "", "Redis password, if redis-addr is set")
	redisDB   = flag.Int("redis-db", 0, "Redis database number, if redis-addr is set")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	args := flag.Args()
	if len(args) == 0 {
		log.Fatalf("usage: %s [flags] <command> [args...]", os.Args[0])
	}

	serialPort, err := transport.Open(transport.Config{
		Port:    *port,
		Baud:    *baud,
		Timeout: time.Duration(*timeout * float64(time.Second)),
	})
	if err != nil {
		log.Printf("open serial port: %v", err)
		os.Exit(1)
	}
	defer serialPort.Close()

	session := opup.NewSession(serialPort)
	if *verbose {
		session.SetTrace(opup.HexTrace(log.Printf))
	}
	if *redisAddr != "" {
		pub, err := opup.NewRedisPublisher(*redisAddr, *redisPass, *redisDB, "opup:events")
		if err != nil {
			log.Printf("connect redis: %v", err)
			os.Exit(1)
		}
		defer pub.Close()
		session.SetEventPublisher(pub)
	}

	if err := dispatch(session, args[0], args[1:]); err != nil {
		log.Printf("%s: %v", args[0], err)
	}
}

func dispatch(session *opup.Session, cmd string, args []string) error {
	switch cmd {
	case "ping":
		return cmdPing(session)
	case "status":
		return cmdStatus(session)
	case "gpio-test":
		return cmdGPIOTest(session)
	case "i2c-scan":
		return cmdI2CScan(session)
	case "spi-scan":
		return cmdSPIScan(session)
	case "spi-raw":
		return cmdSPIRaw(session, args)
	case "spi-jedec":
		return cmdSPIJedec(session)
	case "qspi-mode":
		return cmdQSPIMode(session, args)
	case "qspi-read":
		return cmdQSPIRead(session, args)
	case "qspi-fast-read":
		return cmdQSPIFastRead(session, args)
	case "qspi-cmd":
		return cmdQSPICmd(session, args)
	case "qspi-test":
		return cmdQSPITest(session)
	case "qspi-quad-enable":
		return cmdQSPIQuadEnable(session)
	case "qspi-status":
		return cmdQSPIStatus(session)
	case "flash-read":
		return cmdFlashRead(session, args)
	case "flash-write":
		return cmdFlashWrite(session, args)
	case "flash-erase":
		return cmdFlashErase(session, args)
	case "flash-test":
		return cmdFlashTest(session, args)
	case "flash-benchmark":
		return cmdFlashBenchmark(session, args)
	case "avr-sig":
		return cmdAVRSig(session)
	case "isp-enter":
		return cmdISPEnter(session)
	case "isp-exit":
		return cmdISPExit(session)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdPing(s *opup.Session) error {
	if err := opup.Ping(s); err != nil {
		return err
	}
	fmt.Println("pong")
	return nil
}

func cmdStatus(s *opup.Session) error {
	st, err := opup.GetStatus(s)
	if err != nil {
		return err
	}
	fmt.Printf("status=0x%02x uptime_ms=%d free_ram=%d\n", st.Status, st.UptimeMs, st.FreeRAM)
	return nil
}

func cmdGPIOTest(s *opup.Session) error {
	g, err := opup.GPIOTest(s)
	if err != nil {
		return err
	}
	fmt.Printf("CS=%v SCK=%v MOSI=%v MISO=%v IO2=%v IO3=%v\n", g.CS, g.SCK, g.MOSI, g.MISO, g.IO2, g.IO3)
	return nil
}

func cmdI2CScan(s *opup.Session) error {
	addrs, err := opup.I2CScan(s)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		fmt.Println("no devices found")
		return nil
	}
	for _, a := range addrs {
		fmt.Printf("0x%02x\n", a)
	}
	return nil
}

func cmdSPIScan(s *opup.Session) error {
	r, err := opup.SPIScan(s)
	if err != nil {
		return err
	}
	if !r.Found {
		fmt.Println("no device found")
		return nil
	}
	fmt.Printf("manufacturer=0x%02x device=0x%02x%02x\n", r.Manufacturer, r.DeviceHigh, r.DeviceLow)
	return nil
}

func cmdSPIRaw(s *opup.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: spi-raw HEX")
	}
	tx, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	rx, err := opup.SPIXfer(s, tx)
	if err != nil {
		return err
	}
	fmt.Println(hexdump.Hex(rx))
	return nil
}

func cmdSPIJedec(s *opup.Session) error {
	e := flash.New(s)
	id, err := e.Identify()
	if err != nil {
		return err
	}
	fmt.Println(id.String())
	return nil
}

func cmdQSPIMode(s *opup.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: qspi-mode N")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > 5 {
		return fmt.Errorf("mode must be an integer 0-5")
	}
	got, err := opup.QSPISetMode(s, byte(n))
	if err != nil {
		return err
	}
	fmt.Printf("mode now %d\n", got)
	return nil
}

func cmdQSPIRead(s *opup.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: qspi-read ADDR LEN")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	length, err := strconv.Atoi(args[1])
	if err != nil || length < 0 || length > 0xFFFF {
		return fmt.Errorf("len must be an integer 0-65535")
	}
	data, err := opup.QSPIRead(s, 0x03, addr, 3, 0, uint16(length))
	if err != nil {
		return err
	}
	fmt.Print(hexdump.Dump(data))
	return nil
}

func cmdQSPIFastRead(s *opup.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: qspi-fast-read ADDR [PAGES]")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	pages := 1
	if len(args) >= 2 {
		pages, err = strconv.Atoi(args[1])
		if err != nil || pages < 1 || pages > 255 {
			return fmt.Errorf("pages must be an integer 1-255")
		}
	}
	data, err := opup.QSPIFastRead(s, addr, byte(pages))
	if err != nil {
		return err
	}
	fmt.Print(hexdump.Dump(data))
	return nil
}

func cmdQSPICmd(s *opup.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: qspi-cmd CMD [HEX]")
	}
	cmdByte, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("cmd must be a byte: %w", err)
	}
	var tx []byte
	if len(args) >= 2 {
		tx, err = hex.DecodeString(args[1])
		if err != nil {
			return fmt.Errorf("decode hex: %w", err)
		}
	}
	rx, err := opup.QSPICmd(s, byte(cmdByte), tx)
	if err != nil {
		return err
	}
	fmt.Println(hexdump.Hex(rx))
	return nil
}

func cmdQSPITest(s *opup.Session) error {
	e := flash.New(s)
	results, err := e.ProbeAllModes()
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("mode %d: FAIL (%v)\n", r.Mode, r.Err)
			continue
		}
		fmt.Printf("mode %d: %s\n", r.Mode, r.Identity.String())
	}
	return nil
}

func cmdQSPIQuadEnable(s *opup.Session) error {
	e := flash.New(s)
	id, err := e.Identify()
	if err != nil {
		return err
	}
	if err := e.QuadEnable(id.Manufacturer); err != nil {
		return err
	}
	fmt.Println("quad-enable ok")
	return nil
}

func cmdQSPIStatus(s *opup.Session) error {
	e := flash.New(s)
	sr1, err := e.ReadSR1()
	if err != nil {
		return err
	}
	sr2, err := e.ReadSR2()
	if err != nil {
		return err
	}
	fmt.Printf("SR1=0x%02x SR2=0x%02x\n", sr1, sr2)
	return nil
}

func cmdFlashRead(s *opup.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: flash-read ADDR [LEN]")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	length := flash.PageSize
	if len(args) >= 2 {
		length, err = strconv.Atoi(args[1])
		if err != nil || length < 0 {
			return fmt.Errorf("len must be a non-negative integer")
		}
	}
	e := flash.New(s)
	data, err := e.ReadRange(addr, length)
	if err != nil {
		return err
	}
	fmt.Print(hexdump.Dump(data))
	return nil
}

func cmdFlashWrite(s *opup.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: flash-write ADDR HEX")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	e := flash.New(s)
	n, err := e.Write(addr, data)
	if err != nil {
		return fmt.Errorf("wrote %d of %d bytes: %w", n, len(data), err)
	}
	fmt.Printf("wrote %d bytes\n", n)
	return nil
}

func cmdFlashErase(s *opup.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: flash-erase ADDR [sector|block32|block64|chip]")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	granularity := flash.Sector
	if len(args) >= 2 {
		switch args[1] {
		case "sector":
			granularity = flash.Sector
		case "block32":
			granularity = flash.Block32
		case "block64":
			granularity = flash.Block64
		case "chip":
			granularity = flash.Chip
			if !confirmChipErase() {
				return fmt.Errorf("chip erase not confirmed")
			}
		default:
			return fmt.Errorf("unknown granularity %q", args[1])
		}
	}
	e := flash.New(s)
	if err := e.Erase(granularity, addr); err != nil {
		return err
	}
	fmt.Println("erase ok")
	return nil
}

// confirmChipErase requires the operator to type the literal string YES,
// per §6 — the confirmation itself is a CLI concern, not core logic.
func confirmChipErase() bool {
	fmt.Print("This will erase the entire chip. Type YES to confirm: ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line) == "YES"
}

func cmdFlashTest(s *opup.Session, args []string) error {
	addr := uint32(0x100000)
	if len(args) >= 1 {
		a, err := parseUint32(args[0])
		if err != nil {
			return err
		}
		addr = a
	}
	e := flash.New(s)
	result, err := e.VerifySectorRoundtrip(addr)
	if err != nil {
		return err
	}
	if !result.ErasedClean {
		return fmt.Errorf("erased region not clean at offset %d", result.FirstMismatch)
	}
	if result.Mismatch {
		return fmt.Errorf("readback mismatch at offset %d", result.FirstMismatch)
	}
	fmt.Println("flash-test ok")
	return nil
}

func cmdFlashBenchmark(s *opup.Session, args []string) error {
	sizeKB := 4
	addr := uint32(0x100000)
	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("size_kb must be a positive integer")
		}
		sizeKB = n
	}
	if len(args) >= 2 {
		a, err := parseUint32(args[1])
		if err != nil {
			return err
		}
		addr = a
	}

	driver := bench.New(s)
	results, err := driver.Run(addr, sizeKB)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-20s FAIL (%v)\n", r.Spec.Name, r.Err)
			continue
		}
		fmt.Printf("%-20s %7d bytes in %-10s verified=%v\n", r.Spec.Name, r.BytesRead, r.Elapsed, r.Verified)
	}
	report, err := bench.EncodeReport(results)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Printf("report: %d bytes of CBOR\n", len(report))
	return nil
}

func cmdAVRSig(s *opup.Session) error {
	sig, err := avr.ReadSignature(s)
	if err != nil {
		return err
	}
	fmt.Printf("%02x %02x %02x\n", sig[0], sig[1], sig[2])
	return nil
}

func cmdISPEnter(s *opup.Session) error {
	entered, err := opup.ISPEnter(s)
	if err != nil {
		return err
	}
	if !entered {
		return fmt.Errorf("device did not acknowledge ISP-enter")
	}
	fmt.Println("isp-enter ok")
	return nil
}

func cmdISPExit(s *opup.Session) error {
	if err := opup.ISPExit(s); err != nil {
		return err
	}
	fmt.Println("isp-exit ok")
	return nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}
