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
	coinAddress      string
	mintAmount       uint64
	collateralToken  string
	collateralAmount uint64
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint stablecoin units against locked collateral",
	Run:   mintRun,
}

func init() {
	rootCmd.AddCommand(mintCmd)
	mintCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	mintCmd.Flags().StringVarP(&coinAddress, "coin", "s", "", "Address of the registered stablecoin.")
	mintCmd.Flags().Uint64VarP(&mintAmount, "amount", "m", 0, "Amount of stablecoin units to mint.")
	mintCmd.Flags().StringVarP(&collateralToken, "token", "t", "", "Token address of the collateral.")
	mintCmd.Flags().Uint64VarP(&collateralAmount, "collateral", "c", 0, "Amount of collateral to lock.")
}

func mintRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	req := struct {
		Minter            string `json:"minter"`
		StablecoinAddress string `json:"stablecoin_address"`
		Amount            uint64 `json:"amount"`
		CollateralAssets  []struct {
			TokenAddress string `json:"token_address"`
			Amount       uint64 `json:"amount"`
		} `json:"collateral_assets"`
	}{
		Minter:            string(database.PublicKeyToAccountID(privateKey.PublicKey)),
		StablecoinAddress: coinAddress,
		Amount:            mintAmount,
		CollateralAssets: []struct {
			TokenAddress string `json:"token_address"`
			Amount       uint64 `json:"amount"`
		}{
			{TokenAddress: collateralToken, Amount: collateralAmount},
		},
	}

	payload, err := json.Marshal(req)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/stablecoin/mint", url), "application/json", bytes.NewBuffer(payload))
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
