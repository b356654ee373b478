// seed_stock genera un script SQL de carga inicial de depósitos y variantes
// a partir de un CSV exportado de planilla.
//
// Uso: go run ./cmd/seed_stock [-charset iso-8859-1] [-out seed_stock.sql] inventario.csv
// Sin -out escribe en stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/depot-stock-api/internal/infrastructure/seed"
)

func main() {
	charset := flag.String("charset", string(seed.UTF8), "codificación del CSV: utf-8 | iso-8859-1")
	outPath := flag.String("out", "", "archivo SQL de salida (vacío = stdout)")
	flag.Parse()

	csvPath := "inventario.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	stock, err := seed.ReadStockCSV(f, seed.Charset(*charset))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		file, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		out = file
	}

	if err := stock.WriteSQL(out); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generado: %d depósitos, %d variantes\n", len(stock.Depots), len(stock.Variants))
}
