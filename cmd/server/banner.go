package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/gookit/color"

	"neochat/internal"
)

// printBanner mirrors the startup screen operators expect: where each
// transport listens and which console commands are available.
func printBanner(config internal.Config) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	color.Cyan.Println("      NeoChat relay server")
	fmt.Println(line)
	color.Green.Printf("tcp (stream):   %s\n", config.TCPAddr())
	color.Green.Printf("http (polling): %s\n", config.HTTPAddr())
	color.Green.Printf("ws (frames):    %s\n", config.WSAddr())
	if config.Host == "0.0.0.0" {
		color.Green.Printf("lan address:    %s\n", localIP())
	}
	color.Yellow.Println("console: stats | list | savelog | quit, anything else broadcasts")
	fmt.Println(line)
}

// localIP finds the outbound interface address without sending data.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
