package config

import (
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

var (
	ethRpcUrl            string
	escrowContractAddr   string
	stakeRegistryAddr    string
	databaseHost         string
	databaseHostPort     string
	backendPort          string
	sweepInterval        time.Duration
	revealGraceWindow    time.Duration
	minStakeWei          *big.Int
	balanceToleranceWei  *big.Int
	receiptRetryAttempts int
	receiptRetryDelay    time.Duration
	devMode              bool
)

func Init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment")
	}
	devMode = os.Getenv("DEV_MODE") == "true"

	ethRpcUrl = os.Getenv("ETH_RPC_URL")
	if ethRpcUrl == "" {
		log.Fatal("Invalid EthRpcUrl")
	}

	escrowContractAddr = os.Getenv("ESCROW_CONTRACT_ADDRESS")
	if !common.IsHexAddress(escrowContractAddr) {
		log.Fatal("Invalid EscrowContractAddress")
	}

	stakeRegistryAddr = os.Getenv("STAKE_REGISTRY_ADDRESS")
	if !common.IsHexAddress(stakeRegistryAddr) {
		log.Fatal("Invalid StakeRegistryAddress")
	}

	databaseHost = os.Getenv("DATABASE_HOST")
	if databaseHost == "" {
		log.Fatal("Invalid DatabaseHost")
	}

	databaseHostPort = os.Getenv("DATABASE_HOST_PORT")
	if databaseHostPort == "" {
		databaseHostPort = "9042"
	}

	backendPort = os.Getenv("BACKEND_PORT")
	if backendPort == "" {
		backendPort = "8080"
	}

	sweepInterval = parseDurationOr("SWEEP_INTERVAL", 30*time.Second)
	revealGraceWindow = parseDurationOr("REVEAL_GRACE_WINDOW", 7*24*time.Hour)
	receiptRetryDelay = parseDurationOr("RECEIPT_RETRY_DELAY", 2*time.Second)

	minStakeWei = parseBigIntOr("MIN_STAKE_WEI", big.NewInt(1))
	balanceToleranceWei = parseBigIntOr("BALANCE_TOLERANCE_WEI", big.NewInt(1_000_000_000_000))

	receiptRetryAttempts = 3
	if v := os.Getenv("RECEIPT_RETRY_ATTEMPTS"); v != "" {
		n, ok := new(big.Int).SetString(v, 10)
		if !ok || !n.IsInt64() || n.Int64() < 1 {
			log.Fatal("Invalid ReceiptRetryAttempts")
		}
		receiptRetryAttempts = int(n.Int64())
	}
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("Invalid %s format: %v", key, err)
	}
	return d
}

func parseBigIntOr(key string, fallback *big.Int) *big.Int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		log.Fatalf("Invalid %s: not a base-10 integer", key)
	}
	return n
}

func GetEthRpcUrl() string { return ethRpcUrl }

func GetEscrowContractAddress() string { return escrowContractAddr }

func GetStakeRegistryAddress() string { return stakeRegistryAddr }

func GetDatabaseHost() string { return databaseHost }

func GetDatabaseHostPort() string { return databaseHostPort }

func GetBackendPort() string { return backendPort }

func GetSweepInterval() time.Duration { return sweepInterval }

func GetRevealGraceWindow() time.Duration { return revealGraceWindow }

func GetMinStakeWei() *big.Int { return minStakeWei }

func GetBalanceToleranceWei() *big.Int { return balanceToleranceWei }

func GetReceiptRetryAttempts() int { return receiptRetryAttempts }

func GetReceiptRetryDelay() time.Duration { return receiptRetryDelay }

func IsDevMode() bool { return devMode }
