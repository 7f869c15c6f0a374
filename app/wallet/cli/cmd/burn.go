package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	burnAmount uint64
	lockID     string
)

var burnCmd = &cobra.Command{
	Use:   "burn",
	Short: "Burn stablecoin units and release the collateral lock",
	Run:   burnRun,
}

func init() {
	rootCmd.AddCommand(burnCmd)
	burnCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	burnCmd.Flags().StringVarP(&coinAddress, "coin", "s", "", "Address of the registered stablecoin.")
	burnCmd.Flags().Uint64VarP(&burnAmount, "amount", "m", 0, "Amount of stablecoin units to burn.")
	burnCmd.Flags().StringVarP(&lockID, "lock", "l", "", "Id of the collateral lock to release.")
}

func burnRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	req := struct {
		Burner            string `json:"burner"`
		StablecoinAddress string `json:"stablecoin_address"`
		Amount            uint64 `json:"amount"`
		CollateralLockID  string `json:"collateral_lock_id"`
	}{
		Burner:            string(database.PublicKeyToAccountID(privateKey.PublicKey)),
		StablecoinAddress: coinAddress,
		Amount:            burnAmount,
		CollateralLockID:  lockID,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/stablecoin/burn", url), "application/json", bytes.NewBuffer(payload))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("status:", resp.Status)
	fmt.Println(string(body))
}
