package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackholedex/arbengine/internal/chain"
	"github.com/blackholedex/arbengine/internal/config"
	"github.com/blackholedex/arbengine/internal/dexclient"
	"github.com/blackholedex/arbengine/internal/orchestrator"
	"github.com/blackholedex/arbengine/internal/persistence"
	"github.com/blackholedex/arbengine/internal/secrets"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	encryptedPk := os.Getenv("ENC_PK")
	if encryptedPk == "" {
		log.Fatal("ENC_PK not set")
	}
	key := os.Getenv("KEY")
	if key == "" {
		log.Fatal("KEY not set")
	}

	pkHex, err := secrets.Decrypt([]byte(key), encryptedPk)
	if err != nil {
		log.Fatalf("decrypting private key: %v", err)
	}
	privateKey, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		log.Fatalf("parsing private key: %v", err)
	}
	myAddr := crypto.PubkeyToAddress(privateKey.PublicKey)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		log.Fatalf("dialing rpc: %v", err)
	}
	defer client.Close()

	specs := make([]chain.ContractSpec, 0, len(cfg.ContractClient))
	for _, c := range cfg.ToContractClientConfigs() {
		specs = append(specs, chain.ContractSpec{Address: c.Address, AbiPath: c.AbiPath})
	}
	clients, err := chain.NewClientSet(client, specs)
	if err != nil {
		log.Fatalf("wiring contract clients: %v", err)
	}

	reader := chain.NewReader(client)
	poolReader := chain.NewAlgebraPoolReader(clients)
	txListener := chain.NewTxListener(client)
	balances := chain.StringBalances{Reader: reader}

	oracleAdapter, err := cfg.BuildOracleAdapter()
	if err != nil {
		log.Fatalf("building oracle adapter: %v", err)
	}

	var recorder persistence.Recorder
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		r, err := persistence.NewMySQLRecorder(dsn)
		if err != nil {
			log.Fatalf("connecting to mysql: %v", err)
		}
		defer r.Close()
		recorder = r
	}

	targets, err := cfg.ToArbTargets()
	if err != nil {
		log.Fatalf("resolving targets: %v", err)
	}
	if len(targets) == 0 {
		log.Fatal("no targets configured")
	}

	breaker := cfg.ToCircuitBreaker()
	stability := cfg.ToStabilityWindow()

	reportChan := make(chan orchestrator.StrategyReport, 64)

	for _, target := range targets {
		target := target

		routerAddress := ""
		if len(target.Pools) > 0 {
			for _, d := range cfg.Dex {
				if d.Name == target.Pools[0].Family.Name {
					routerAddress = d.RouterAddress
					break
				}
			}
		}

		swapper := dexclient.New(clients, routerAddress, myAddr, privateKey, txListener)
		runner := orchestrator.NewRunner(poolReader, oracleAdapter, swapper, swapper, balances, breaker, stability)

		go func() {
			if err := runner.Run(ctx, target, reportChan); err != nil {
				log.Printf("%s: strategy halted: %v", target.VaultName, err)
			}
		}()
	}

	for report := range drain(ctx, reportChan) {
		logReport(report)
		if recorder != nil {
			if err := recorder.RecordReport(report.VaultName, report); err != nil {
				log.Printf("persisting report: %v", err)
			}
		}
	}
}

// drain forwards reportChan until ctx is cancelled.
func drain(ctx context.Context, reportChan chan orchestrator.StrategyReport) <-chan orchestrator.StrategyReport {
	out := make(chan orchestrator.StrategyReport)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case report, ok := <-reportChan:
				if !ok {
					return
				}
				out <- report
			}
		}
	}()
	return out
}

func logReport(report orchestrator.StrategyReport) {
	if report.Err != nil {
		log.Printf("[%s] %s: %s (%v)", report.Phase, report.EventType, report.Message, report.Err)
		return
	}
	fmt.Printf("[%s] %s: %s\n", report.Phase, report.EventType, report.Message)
}
