package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/volume"
)

func main() {
	cfg := volume.DefaultConfig()
	cfg.Path = "test.img"
	if err := volume.FormatExp(cfg, 22); err != nil {
		log.Fatal(err)
	}
	defer os.Remove(cfg.Path)
	v, err := volume.Mount(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer v.Unmount()

	{
		for i := 0; i < 10; i++ {
			name := fmt.Sprintf("file_%v", i)
			if err := v.Create(name); err != nil {
				log.Fatal(err)
			}
			fd, err := v.Open(name, constant.Append)
			if err != nil {
				log.Fatal(err)
			}
			for j := 0; j < i*100; j++ {
				if _, err := v.Append(fd, []byte(fmt.Sprintf("%v", j%10))); err != nil {
					log.Fatal(err)
				}
			}
			if err := v.Close(fd); err != nil {
				log.Fatal(err)
			}
		}
	}
	{
		for i := 0; i < 10; i++ {
			name := fmt.Sprintf("file_%v", i)
			fd, err := v.Open(name, constant.Read)
			if err != nil {
				log.Fatal(err)
			}
			buf, err := v.Read(fd, i*100)
			if err != nil {
				log.Fatal(err)
			}
			exp := bytes.Repeat([]byte("0123456789"), i*10)
			if !bytes.Equal(buf, exp) {
				log.Fatal(fmt.Errorf("%s: read %v bytes, content differs\n", name, len(buf)))
			}
			if err := v.Close(fd); err != nil {
				log.Fatal(err)
			}
		}
	}
	{
		for i := 0; i < 10; i += 2 {
			if err := v.Delete(fmt.Sprintf("file_%v", i)); err != nil {
				log.Fatal(err)
			}
		}
		fs, err := v.List()
		if err != nil {
			log.Fatal(err)
		}
		for _, fi := range fs {
			fmt.Printf("%s: %v bytes in %v blocks\n", fi.Name, fi.Size, len(fi.Blocks))
		}
		n, err := v.FreeBlocks()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("free blocks: %v\n", n)
	}
}
